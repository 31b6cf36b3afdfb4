// Package workflow runs the multi-step user flows of the client as sagas:
// ordered steps, each with an optional compensation and a failure policy.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/goliatone/go-flowx/api"
)

// FailurePolicy says what a failed step does to the rest of the saga.
type FailurePolicy int

const (
	// Abort compensates every completed step in reverse order.
	Abort FailurePolicy = iota
	// ReportPartial stops and keeps the completed work.
	ReportPartial
)

// Step is one unit of a saga.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
	OnFailure  FailurePolicy
}

// Outcome is how a saga run ended.
type Outcome string

const (
	Succeeded          Outcome = "succeeded"
	PartiallySucceeded Outcome = "partially_succeeded"
	Failed             Outcome = "failed"
	Compensated        Outcome = "compensated"
)

// Report describes how a saga ended.
type Report struct {
	Outcome     Outcome
	Completed   []string
	Failed      string
	Compensated []string
	Err         error
	// CompensationErrs holds failures of compensating steps, keyed by step.
	CompensationErrs map[string]error
}

// OK reports whether every step succeeded.
func (r Report) OK() bool {
	return r.Outcome == Succeeded
}

// Message renders the report for a person. Partial outcomes read as a
// success with a warning.
func (r Report) Message() string {
	switch r.Outcome {
	case Succeeded:
		return "completed"
	case PartiallySucceeded:
		return fmt.Sprintf("completed with warnings: %s failed: %s", r.Failed, api.Message(r.Err))
	case Compensated:
		return fmt.Sprintf("%s failed and was rolled back: %s", r.Failed, api.Message(r.Err))
	default:
		msg := fmt.Sprintf("%s failed: %s", r.Failed, api.Message(r.Err))
		if len(r.CompensationErrs) > 0 {
			names := make([]string, 0, len(r.CompensationErrs))
			for name := range r.CompensationErrs {
				names = append(names, name)
			}
			sort.Strings(names)
			msg += "; rollback incomplete for " + strings.Join(names, ", ")
		}
		return msg
	}
}

// Saga is an ordered list of steps.
type Saga struct {
	name   string
	steps  []Step
	logger *slog.Logger
}

// New returns a saga running steps in order. A nil logger discards.
func New(name string, logger *slog.Logger, steps ...Step) *Saga {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Saga{name: name, steps: steps, logger: logger}
}

// Add appends step and returns s for chaining.
func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the steps in order. There is no transactional guarantee:
// compensation is best effort and its failures are reported, not retried.
func (s *Saga) Execute(ctx context.Context) Report {
	report := Report{Outcome: Succeeded}
	var done []Step

	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, report, step, err, done)
		}
		if err := step.Run(ctx); err != nil {
			return s.fail(ctx, report, step, err, done)
		}
		done = append(done, step)
		report.Completed = append(report.Completed, step.Name)
	}

	s.logger.Debug("saga completed", "saga", s.name, "steps", len(done))
	return report
}

func (s *Saga) fail(ctx context.Context, report Report, step Step, err error, done []Step) Report {
	report.Failed = step.Name
	report.Err = err
	s.logger.Warn("saga step failed", "saga", s.name, "step", step.Name, "error", api.Message(err))

	if step.OnFailure == ReportPartial && len(done) > 0 {
		report.Outcome = PartiallySucceeded
		return report
	}
	if len(done) == 0 {
		report.Outcome = Failed
		return report
	}

	// Compensations run even when ctx is done; they undo work already sent.
	cctx := context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		prev := done[i]
		if prev.Compensate == nil {
			continue
		}
		if cerr := prev.Compensate(cctx); cerr != nil {
			if report.CompensationErrs == nil {
				report.CompensationErrs = map[string]error{}
			}
			report.CompensationErrs[prev.Name] = cerr
			s.logger.Error("saga compensation failed", "saga", s.name, "step", prev.Name, "error", api.Message(cerr))
			continue
		}
		report.Compensated = append(report.Compensated, prev.Name)
	}

	if len(report.CompensationErrs) > 0 {
		report.Outcome = Failed
	} else {
		report.Outcome = Compensated
	}
	return report
}
