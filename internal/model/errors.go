package model

import (
	"errors"
	"fmt"
)

// Stage names a pipeline step for error reporting.
type Stage string

const (
	StageLoad      Stage = "load"
	StageAggregate Stage = "aggregate"
	StageRender    Stage = "render"
	StageOutput    Stage = "output"
)

// Stage sentinels. Match with errors.Is.
var (
	ErrDataLoad    = errors.New("data load error")
	ErrAggregation = errors.New("aggregation error")
	ErrRender      = errors.New("render error")
	ErrOutput      = errors.New("output error")
)

// StageError is a fatal pipeline failure tagged with its stage and, for
// per-chart failures, the chart's output file name.
type StageError struct {
	Stage Stage
	Chart string
	Err   error
}

func (e *StageError) Error() string {
	if e.Chart != "" {
		return fmt.Sprintf("%s stage: chart %s: %v", e.Stage, e.Chart, e.Err)
	}
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

// Unwrap exposes both the stage sentinel and the cause.
func (e *StageError) Unwrap() []error {
	return []error{sentinel(e.Stage), e.Err}
}

func sentinel(s Stage) error {
	switch s {
	case StageLoad:
		return ErrDataLoad
	case StageAggregate:
		return ErrAggregation
	case StageRender:
		return ErrRender
	default:
		return ErrOutput
	}
}

// Errorf builds a StageError from a format string.
func Errorf(stage Stage, format string, args ...interface{}) error {
	return &StageError{Stage: stage, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with stage unless it already carries one.
func Wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// AtChart attaches a chart file name to err, tagging it with stage when it
// has none yet.
func AtChart(stage Stage, chart string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		cp := *se
		if cp.Chart == "" {
			cp.Chart = chart
		}
		return &cp
	}
	return &StageError{Stage: stage, Chart: chart, Err: err}
}

// StageOf returns the stage recorded in err, or "" when err is untagged.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
