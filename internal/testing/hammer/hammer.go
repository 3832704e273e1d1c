// Package hammer runs a test body from many goroutines at once, to surface races on shared runtime state such as
// the module namespace of a store.
package hammer

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
)

// Hammer invokes a test concurrently in P goroutines N times per goroutine.
//
// Ex.
//
//	P, N := 8, 100
//	if testing.Short() {
//		P, N = 4, 10
//	}
//	hammer.NewHammer(t, P, N).Run(func(p, n int) {
//		name := fmt.Sprintf("%d-%d", p, n) // unique per invocation
//		...
//	}, nil)
//	if t.Failed() {
//		return
//	}
type Hammer interface {
	// Run releases all goroutines at the same time, after onRunning, if not nil, returns. A panic in any
	// invocation, including a failed require, fails the calling test.
	Run(test func(p, n int), onRunning func())
}

// NewHammer returns a Hammer of P goroutines, each invoking the test N times.
func NewHammer(t testing.TB, P, N int) Hammer {
	return &hammer{t: t, P: P, N: N}
}

type hammer struct {
	t    testing.TB
	P, N int
}

// Run implements Hammer.Run
func (h *hammer) Run(test func(p, n int), onRunning func()) {
	if procs := h.P / 2; procs > 0 {
		defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(procs)) // goroutines have to switch cores
	}

	var ready, done sync.WaitGroup
	start := make(chan struct{})
	ready.Add(h.P)
	done.Add(h.P)
	for p := 0; p < h.P; p++ {
		go func(p int) {
			defer done.Done()
			defer func() {
				if recovered := recover(); recovered != nil {
					h.t.Error(fmt.Sprintf("goroutine %d: %v", p, recovered))
				}
			}()
			ready.Done()
			<-start
			for n := 0; n < h.N; n++ {
				test(p, n)
			}
		}(p)
	}

	ready.Wait()
	if onRunning != nil {
		onRunning()
	}
	close(start)
	done.Wait()
}
