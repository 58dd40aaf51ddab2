// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit applies a token bucket per client key.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/titlepack/titlepack/lib/clock"
)

// DefaultIdleTTL is used when Config.IdleTTL is zero.
const DefaultIdleTTL = 10 * time.Minute

// Config configures a Limiter.
type Config struct {
	// RequestsPerSecond is the sustained rate per key.
	RequestsPerSecond float64

	// Burst is the bucket size per key.
	Burst int

	// IdleTTL is how long a key may go unused before its bucket is
	// evicted.
	IdleTTL time.Duration
}

// Limiter holds one token bucket per key. A nil *Limiter allows
// everything, so callers can disable limiting by not constructing one.
type Limiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	clock   clock.Clock

	mu    sync.Mutex
	byKey map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New returns a Limiter, or nil when RequestsPerSecond or Burst is not
// positive.
func New(config Config, c clock.Clock) *Limiter {
	if config.RequestsPerSecond <= 0 || config.Burst <= 0 {
		return nil
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultIdleTTL
	}
	if c == nil {
		c = clock.Real()
	}
	return &Limiter{
		limit:   rate.Limit(config.RequestsPerSecond),
		burst:   config.Burst,
		idleTTL: config.IdleTTL,
		clock:   c,
		byKey:   make(map[string]*entry),
	}
}

// Allow reports whether one request for key may proceed now. Empty keys
// are always allowed.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// RetryAfter returns how long key should wait before its next request
// would be allowed, rounded up to a whole second for the Retry-After
// header.
func (l *Limiter) RetryAfter(key string) time.Duration {
	if l == nil {
		return 0
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[strings.TrimSpace(key)]
	if !ok {
		return 0
	}
	missing := 1 - e.limiter.TokensAt(now)
	if missing <= 0 {
		return 0
	}
	wait := time.Duration(missing / float64(l.limit) * float64(time.Second))
	return wait.Truncate(time.Second) + time.Second
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}

// Sweep evicts keys idle for longer than the idle TTL.
func (l *Limiter) Sweep() {
	if l == nil {
		return
	}
	cutoff := l.clock.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.byKey {
		if e.lastSeen.Before(cutoff) {
			delete(l.byKey, key)
		}
	}
}

// Run sweeps idle keys every idle TTL until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	if l == nil {
		return
	}
	ticker := l.clock.NewTicker(l.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// ClientKey returns the rate-limit key for a request: the remote host
// without its port.
func ClientKey(request *http.Request) string {
	remote := strings.TrimSpace(request.RemoteAddr)
	if remote == "" {
		return "ip:unknown"
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return "ip:" + remote
	}
	if strings.TrimSpace(host) == "" {
		return "ip:unknown"
	}
	return "ip:" + host
}
