package contentrepo

import "time"

// watchdog is a self-renewing deadline: armed when the transfer starts,
// renewed on every progress tick, fired on C when a full window passes
// without renewal.
type watchdog struct {
	timer *time.Timer
	d     time.Duration
	C     <-chan time.Time
}

func newWatchdog(d time.Duration) *watchdog {
	t := time.NewTimer(d)
	return &watchdog{timer: t, d: d, C: t.C}
}

// Renew pushes the deadline back by a full window. Must be called from the
// same goroutine that receives from C, which makes the stop/drain dance
// below safe.
func (w *watchdog) Renew() {
	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timer.Reset(w.d)
}

// Stop disarms the watchdog. C is left undrained; callers stop selecting on
// it once the upload settles.
func (w *watchdog) Stop() {
	w.timer.Stop()
}
