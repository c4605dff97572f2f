// Package recovery decides what a batch operation does when one of its
// units fails: keep going and tally, or stop.
package recovery

import (
	"context"
	"fmt"
)

// Strategy is consulted once per failed unit.
type Strategy interface {
	OnError(ctx context.Context, err error, location Location) Action
}

// Location identifies the failed unit.
type Location struct {
	// Page is the zero-based page index.
	Page int
	// Operation names the batch step, e.g. "ai-edit" or "background".
	Operation string
}

func (l Location) String() string {
	return fmt.Sprintf("%s page %d", l.Operation, l.Page+1)
}

// Action is a Strategy's verdict.
type Action int

const (
	// ActionFail aborts the batch with the unit's error.
	ActionFail Action = iota
	// ActionSkip leaves the unit untouched, records it and continues.
	ActionSkip
)

func (a Action) String() string {
	if a == ActionSkip {
		return "skip"
	}
	return "fail"
}
