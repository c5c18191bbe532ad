// Package task carries the cooperative-cancellation contract polled by
// long-running store operations such as table migration.
package task

import (
	"context"
	"errors"
)

var ErrCancelled = errors.New("task: cancelled")

// Monitor is polled once per unit of work. CheckCancelled returns
// ErrCancelled once cancellation has been requested, nil otherwise.
type Monitor interface {
	CheckCancelled() error
}

// None never cancels.
var None Monitor = noneMonitor{}

type noneMonitor struct{}

func (noneMonitor) CheckCancelled() error { return nil }

// FromContext maps a context's cancellation onto the Monitor contract.
func FromContext(ctx context.Context) Monitor {
	return ctxMonitor{ctx: ctx}
}

type ctxMonitor struct {
	ctx context.Context
}

func (m ctxMonitor) CheckCancelled() error {
	if m.ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}
