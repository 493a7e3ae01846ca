package logging

import (
	"context"

	"github.com/alexisbeaulieu97/deployline/internal/ports"
)

// discard drops every entry. Components fall back to it when no logger is
// injected.
type discard struct{}

var _ ports.Logger = discard{}

func (discard) Debug(context.Context, string, ...interface{}) {}
func (discard) Info(context.Context, string, ...interface{})  {}
func (discard) Warn(context.Context, string, ...interface{})  {}
func (discard) Error(context.Context, string, ...interface{}) {}
func (d discard) With(...interface{}) ports.Logger            { return d }

// NewNoOpLogger returns a logger that writes nothing.
func NewNoOpLogger() ports.Logger {
	return discard{}
}
