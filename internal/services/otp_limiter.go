package services

import (
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// OTP cooldown key prefixes.
const (
	cooldownLoginOTP  = "login"
	cooldownEnable2FA = "enable2fa"
)

// CooldownLimiter throttles per-email OTP issuance. Each (action, email)
// pair gets its own limiter that allows one request per cooldown window.
// Idle entries expire and are pruned on access, so the map never grows with
// dead emails.
type CooldownLimiter struct {
	now Clock

	mu      sync.Mutex
	entries map[string]*cooldownEntry
}

type cooldownEntry struct {
	lim      *rate.Limiter
	cooldown time.Duration
	lastSeen time.Time
}

func NewCooldownLimiter(now Clock) *CooldownLimiter {
	if now == nil {
		now = time.Now
	}
	return &CooldownLimiter{
		now:     now,
		entries: make(map[string]*cooldownEntry),
	}
}

// Allow reports whether the (action, email) pair may issue an OTP now. When
// rejected it returns a rate-limited error naming the seconds left to wait.
func (c *CooldownLimiter) Allow(action, email string, cooldown time.Duration) error {
	key := action + ":" + email
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)

	entry, ok := c.entries[key]
	if !ok || entry.cooldown != cooldown {
		entry = &cooldownEntry{
			lim:      rate.NewLimiter(rate.Every(cooldown), 1),
			cooldown: cooldown,
		}
		c.entries[key] = entry
	}
	entry.lastSeen = now

	res := entry.lim.ReserveN(now, 1)
	if !res.OK() {
		return NewRateLimited("too many requests, try again later")
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		seconds := int(math.Ceil(delay.Seconds()))
		return NewRateLimited(fmt.Sprintf("please wait %d seconds before requesting another code", seconds))
	}
	return nil
}

// pruneLocked drops entries idle for longer than twice their cooldown.
func (c *CooldownLimiter) pruneLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.Sub(entry.lastSeen) > 2*entry.cooldown {
			delete(c.entries, key)
		}
	}
}

// AllowLogin gates the two-factor login code for an email.
func (c *CooldownLimiter) AllowLogin(email string, cooldown time.Duration) error {
	return c.Allow(cooldownLoginOTP, email, cooldown)
}

// AllowEnable2FA gates the enable-two-factor verification code for an email.
func (c *CooldownLimiter) AllowEnable2FA(email string, cooldown time.Duration) error {
	return c.Allow(cooldownEnable2FA, email, cooldown)
}
