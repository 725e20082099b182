package kline

import (
	"errors"
	"fmt"
)

// Stage names one step of the chart pipeline.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StageCompute   Stage = "compute"
	StageRender    Stage = "render"
)

// StageError tags a pipeline failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage err was raised in, or an empty stage when err
// does not come from the pipeline.
func StageOf(err error) Stage {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
