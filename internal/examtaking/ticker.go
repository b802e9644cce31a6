package examtaking

import "time"

// TickSource abstracts the one-second countdown pulse so sessions can be
// advanced deterministically in tests instead of waiting on the clock.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

type wallTicker struct {
	t *time.Ticker
}

// NewWallTicker returns a TickSource backed by a real one-second ticker.
func NewWallTicker() TickSource {
	return &wallTicker{t: time.NewTicker(time.Second)}
}

func (w *wallTicker) C() <-chan time.Time { return w.t.C }

func (w *wallTicker) Stop() { w.t.Stop() }
