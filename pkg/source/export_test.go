package source

import "time"

// SetClock overrides the clock used to compute lookback windows.
func SetClock(g *Gateway, now func() time.Time) { g.now = now }
