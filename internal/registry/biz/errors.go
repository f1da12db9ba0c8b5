package biz

import (
	"errors"
	"fmt"
)

// Unique constraint names shared by the migrations and the in-memory store
const (
	ConstraintGroupOwnerName  = "uq_groups_owner_name"
	ConstraintFileGroupSerial = "uq_files_group_serial"
	ConstraintFileUniqueCode  = "uq_files_unique_code"
	ConstraintLinkCode        = "uq_links_code"
)

// ErrUniqueViolation 唯一约束冲突，仓储层返回 *UniqueViolationError
var ErrUniqueViolation = errors.New("unique violation")

// UniqueViolationError carries the name of the violated constraint
type UniqueViolationError struct {
	Constraint string
	Err        error
}

func (e *UniqueViolationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unique violation on %s: %v", e.Constraint, e.Err)
	}
	return "unique violation on " + e.Constraint
}

func (e *UniqueViolationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUniqueViolation) match any constraint
func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrUniqueViolation
}

// NewUniqueViolation 构造唯一约束冲突错误
func NewUniqueViolation(constraint string, cause error) error {
	return &UniqueViolationError{Constraint: constraint, Err: cause}
}

// IsUniqueViolation reports whether err is a unique violation on constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var uv *UniqueViolationError
	if !errors.As(err, &uv) {
		return false
	}
	return constraint == "" || uv.Constraint == constraint
}
