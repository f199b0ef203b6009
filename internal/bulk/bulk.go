// Package bulk expands a bulk submission (one message carrying many links)
// into an ordered list of link strings.
package bulk

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty is reported verbatim to the user when a bulk source yields no
// links after slicing.
var ErrEmpty = errors.New("bulk source is empty")

// Extract splits source into newline-separated links and applies the optional
// 1-based inclusive [from, to] slice. A zero bound means "unbounded" on that
// side. Out-of-range bounds are a hard failure, never silently clamped.
func Extract(source string, from, to int) ([]string, error) {
	var all []string
	for _, line := range strings.Split(source, "\n") {
		if link := strings.TrimSpace(line); link != "" {
			all = append(all, link)
		}
	}
	if len(all) == 0 {
		return nil, ErrEmpty
	}

	if from < 0 || to < 0 {
		return nil, fmt.Errorf("invalid bulk range %d:%d", from, to)
	}
	lo, hi := 1, len(all)
	if from > 0 {
		lo = from
	}
	if to > 0 {
		hi = to
	}
	if lo > len(all) || hi > len(all) || lo > hi {
		return nil, fmt.Errorf("bulk range %d:%d out of bounds for %d links", from, to, len(all))
	}

	return all[lo-1 : hi], nil
}
