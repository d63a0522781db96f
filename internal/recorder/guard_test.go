package recorder

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeSyncer struct {
	flushed bool
	err     error
}

func (f *fakeSyncer) FlushAndSync() error {
	f.flushed = true
	return f.err
}

func TestGuardFlushAllFlushesEveryTrackedWriter(t *testing.T) {
	g := NewGuard(zerolog.Nop())
	a := &fakeSyncer{}
	b := &fakeSyncer{}
	g.Track("a", a)
	g.Track("b", b)

	g.FlushAll()

	if !a.flushed || !b.flushed {
		t.Fatalf("expected both writers flushed, got a=%v b=%v", a.flushed, b.flushed)
	}
}

func TestGuardFlushAllContinuesPastAFailure(t *testing.T) {
	g := NewGuard(zerolog.Nop())
	bad := &fakeSyncer{err: errors.New("disk full")}
	good := &fakeSyncer{}
	g.Track("bad", bad)
	g.Track("good", good)

	g.FlushAll()

	if !bad.flushed || !good.flushed {
		t.Fatalf("expected both writers attempted, got bad=%v good=%v", bad.flushed, good.flushed)
	}
}

func TestGuardTrackLastWriterWins(t *testing.T) {
	g := NewGuard(zerolog.Nop())
	first := &fakeSyncer{}
	second := &fakeSyncer{}
	g.Track("name", first)
	g.Track("name", second)

	g.FlushAll()

	if first.flushed {
		t.Fatal("expected the first registration for a reused name to be replaced, not flushed")
	}
	if !second.flushed {
		t.Fatal("expected the latest registration for a reused name to be flushed")
	}
}
