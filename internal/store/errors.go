package store

import (
	"fmt"

	"github.com/franz/yt-schema/internal/util"
)

// UniqueViolationError is returned when an insert hits a unique constraint.
type UniqueViolationError struct {
	Table      string
	Constraint string
	Err        error
}

func (e *UniqueViolationError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("insert into %s: unique constraint %s violated", e.Table, e.Constraint)
	}
	return fmt.Sprintf("insert into %s: unique constraint violated", e.Table)
}

// Is matches util.ErrUniqueViolation.
func (e *UniqueViolationError) Is(target error) bool {
	return target == util.ErrUniqueViolation
}

func (e *UniqueViolationError) Unwrap() error { return e.Err }
