// Package jobs holds the contract shared by every scheduled job: what a run
// receives from the scheduler, what it returns, and how its failures are
// classified.
package jobs

import (
	"context"
	"time"
)

// RunContext is what the scheduler hands a single invocation.
type RunContext struct {
	TaskID    string
	RunID     string
	Timestamp time.Time
	Timezone  string
}

// Location resolves Timezone, falling back to UTC.
func (rc RunContext) Location() *time.Location {
	if rc.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(rc.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalTime is the trigger time rendered the way run logs show it.
func (rc RunContext) LocalTime() string {
	return rc.Timestamp.In(rc.Location()).Format("1/2/2006, 3:04:05 PM")
}

// Result is the outcome of a successful run.
// Skipped is set when the run did not execute because another run of the
// same task held the overlap lock.
type Result struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Job is one scheduled unit of work. Implementations build their external
// clients inside Run so that invocations share no state.
type Job interface {
	Run(ctx context.Context, rc RunContext) (Result, error)
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context, rc RunContext) (Result, error)

func (f JobFunc) Run(ctx context.Context, rc RunContext) (Result, error) {
	return f(ctx, rc)
}
