package strategy

import (
	"errors"
	"fmt"
)

var (
	ErrStrategyNotFound              = errors.New("strategy does not exist")
	ErrIncorrectConditionType        = errors.New("incorrect condition type")
	ErrIncorrectStatusType           = errors.New("incorrect status type")
	ErrInvalidStrategyField          = errors.New("invalid strategy field")
	ErrInvalidConditionDataStructure = errors.New("invalid condition data structure")
	ErrMissingConditionForIndicator  = errors.New("missing condition for indicator")
	ErrInvalidConditionData          = errors.New("invalid condition data")
	ErrRequiredField                 = errors.New("required field is empty")
)

// InvalidStrategyFieldError names the offending patch key. It matches
// ErrInvalidStrategyField under errors.Is.
type InvalidStrategyFieldError struct {
	Field string
}

func (e *InvalidStrategyFieldError) Error() string {
	return fmt.Sprintf("strategy does not have field: %s", e.Field)
}

func (e *InvalidStrategyFieldError) Is(target error) bool {
	return target == ErrInvalidStrategyField
}
