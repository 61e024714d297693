package aggregate

import (
	"errors"
	"fmt"

	"tradeindex/internal/model"
)

var (
	ErrInvalidCombination   = errors.New("aggregate: invalid time frame and level combination")
	ErrInvalidFilterValue   = errors.New("aggregate: invalid filter value")
	ErrMalformedDateFilter  = errors.New("aggregate: malformed date filter")
	ErrUnsupportedOperation = errors.New("aggregate: unsupported operation")
)

// FilterValueError reports a code prefix that matched no records.
type FilterValueError struct {
	Level model.Level
	Code  string
}

func (e *FilterValueError) Error() string {
	label := "HTS"
	if e.Level == model.LevelIndustry {
		label = "NAICS"
	}
	return fmt.Sprintf("%v: invalid %s code: %s", ErrInvalidFilterValue, label, e.Code)
}

func (e *FilterValueError) Unwrap() error {
	return ErrInvalidFilterValue
}
