// Package scripting runs small JavaScript expressions, used to format the
// labels stamped by page-number batch edits.
package scripting

import (
	"context"
	"errors"
)

// ErrBadLabel is returned when a label script does not produce text.
var ErrBadLabel = errors.New("label script did not produce a string")

// Engine evaluates scripts.
type Engine interface {
	// Execute runs script and returns its exported completion value.
	Execute(ctx context.Context, script string) (interface{}, error)
	// Set binds a global.
	Set(name string, value interface{}) error
}
