package training

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeJobNotFound = "TRAINING_JOB_NOT_FOUND"
	TextCodeClosed      = "TRAINING_CLOSED"
)

// ErrJobNotFound is returned by Status for an unknown job id
var ErrJobNotFound = goerrors.New("training job not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeJobNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrClosed is returned when triggering after Close
var ErrClosed = goerrors.New("training service is closed", goerrors.CategoryOperation).
	WithTextCode(TextCodeClosed).
	WithCode(goerrors.CodeInternal)
