package recovery

import (
	"context"
	"fmt"
	"sync"
)

// StrictStrategy aborts on the first failure.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx context.Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy records every failure and lets the batch continue. A
// cancelled context still aborts.
type LenientStrategy struct {
	mu     sync.Mutex
	errors []error
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{}
}

func (s *LenientStrategy) OnError(ctx context.Context, err error, location Location) Action {
	s.mu.Lock()
	s.errors = append(s.errors, fmt.Errorf("%s: %w", location, err))
	s.mu.Unlock()
	if ctx != nil && ctx.Err() != nil {
		return ActionFail
	}
	return ActionSkip
}

// Errors returns the failures recorded so far.
func (s *LenientStrategy) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errors...)
}
