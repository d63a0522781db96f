package feed

import "razor/internal/core"

// NewSnapshotChannel returns a capacity-1 channel meant to carry only the
// most recently published MarketSnapshot; send through publishLatest so
// that a stale unread value is overwritten instead of stalling the feed.
func NewSnapshotChannel() chan core.MarketSnapshot {
	return make(chan core.MarketSnapshot, 1)
}

// publishLatest overwrites whatever snapshot is currently sitting unread in
// ch with snap. Never blocks: the reader only ever cares about the most
// recent value, so an unread predecessor is simply discarded.
func publishLatest(ch chan core.MarketSnapshot, snap core.MarketSnapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
