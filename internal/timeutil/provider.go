// Package timeutil abstracts the clock so chain delays and daily rollovers
// are testable without real sleeps.
package timeutil

import "time"

type Provider interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

type systemProvider struct{}

// NewSystemProvider returns a Provider backed by the standard library clock.
func NewSystemProvider() Provider {
	return systemProvider{}
}

func (systemProvider) Now() time.Time { return time.Now() }

func (systemProvider) Sleep(d time.Duration) { time.Sleep(d) }

func (systemProvider) After(d time.Duration) <-chan time.Time { return time.After(d) }
