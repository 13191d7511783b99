package factcheck

import (
	"errors"
	"fmt"
)

// ErrEmptyStatement is returned when there is no statement text to check
var ErrEmptyStatement = errors.New("no statement provided")

// Stage names a step of the classification pipeline
type Stage string

const (
	StageCheckableType Stage = "checkable-type"
	StageEvidence      Stage = "evidence"
	StageVerdict       Stage = "verdict"
)

// UpstreamError wraps a failed collaborator call. The statement it belongs
// to stays unresolved.
type UpstreamError struct {
	Stage Stage
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
