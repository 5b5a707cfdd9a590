// internal/detect/cooldown.go
package detect

import "time"

// Cooldown is a simple debounce: Allow reports whether enough time has
// passed since the last recorded firing. The zero interval allows always.
type Cooldown struct {
	interval  time.Duration
	lastFired time.Time
}

func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{interval: interval}
}

// Allow reports whether a firing at now would respect the cooldown.
func (c *Cooldown) Allow(now time.Time) bool {
	if c.lastFired.IsZero() {
		return true
	}
	return now.Sub(c.lastFired) >= c.interval
}

// Fire records a firing at now.
func (c *Cooldown) Fire(now time.Time) {
	c.lastFired = now
}

// LastFired returns the time of the last firing; zero if never fired.
func (c *Cooldown) LastFired() time.Time { return c.lastFired }
