// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the passage of time so that polling loops and
// command deadlines can be driven deterministically in tests.
//
// Production code holds a Clock and obtains it from Real(). Tests use
// Fake() and move time forward explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go monitor.AwaitCondition(ctx, check, c)
//	c.WaitForTimers(2)          // the poll ticker and the deadline
//	c.Advance(check.Interval)   // fire one poll
//
// WaitForTimers closes the race between a goroutine registering a timer
// and the test advancing past it.
package clock
