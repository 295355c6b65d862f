// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package shmq_test

import "testing"

// skipRace skips tests that exercise the shared-memory rings.
// The race detector tracks per-variable happens-before and cannot
// see the ring's cross-variable memory ordering (store-release on
// the slot turn tag, load-acquire on the counters), producing false
// positives.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: rings use cross-variable memory ordering")
}
