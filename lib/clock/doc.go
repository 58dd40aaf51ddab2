// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the wall clock so that archive timestamps,
// request latencies, and rate-limiter eviction can be tested without
// sleeping.
//
// Production code holds a Clock field set to Real(). Tests use Fake,
// which stands still until Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	limiter := ratelimit.New(config, c)
//	go limiter.Run(ctx)
//	c.WaitForTickers(1)
//	c.Advance(time.Minute)
package clock
