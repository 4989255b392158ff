package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

// Clock dává agentovi čas. Now() je synchronizovaný "wall clock",
// Uptime() je doba od startu (obdoba millis() na mikrokontroléru).
type Clock interface {
	Now() time.Time
	Uptime() time.Duration
}

// NTPClock drží offset lokálních hodin vůči NTP serveru.
// Update() se volá v každém tiku, ale dotaz na server pošle jen jednou za interval.
type NTPClock struct {
	server   string
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	query func(host string, opt ntp.QueryOptions) (*ntp.Response, error)
	now   func() time.Time
	start time.Time

	mu       sync.RWMutex
	offset   time.Duration
	lastSync time.Time
	synced   bool
}

func NewNTPClock(server string, interval time.Duration, logger *slog.Logger) *NTPClock {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &NTPClock{
		server:   server,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
		query:    ntp.QueryWithOptions,
		now:      time.Now,
		start:    time.Now(),
	}
}

// Update synchronizuje hodiny, pokud od poslední synchronizace uplynul interval.
// Chyba se jen zaloguje, dál platí starý offset.
func (c *NTPClock) Update(ctx context.Context) {
	c.mu.RLock()
	due := !c.synced || c.now().Sub(c.lastSync) >= c.interval
	c.mu.RUnlock()
	if !due {
		return
	}
	if err := c.ForceUpdate(ctx); err != nil {
		c.logger.Warn("NTP synchronizace selhala", "server", c.server, "error", err)
	}
}

// ForceUpdate se zeptá NTP serveru hned.
func (c *NTPClock) ForceUpdate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	resp, err := c.query(c.server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return fmt.Errorf("dotaz na %s: %w", c.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("neplatná odpověď od %s: %w", c.server, err)
	}

	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.lastSync = c.now()
	c.synced = true
	c.mu.Unlock()

	c.logger.Debug("Čas synchronizován", "server", c.server, "offset", resp.ClockOffset)
	return nil
}

func (c *NTPClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().Add(c.offset)
}

func (c *NTPClock) Uptime() time.Duration {
	return c.now().Sub(c.start)
}

// Synced říká, jestli už proběhla aspoň jedna úspěšná synchronizace.
func (c *NTPClock) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}
