package errs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
)

// ValidationError lists missing required fields and fields that failed format checks.
type ValidationError struct {
	Missing []string
	Invalid map[string]string
}

func (t ValidationError) Error() string {
	var parts []string
	if len(t.Missing) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(t.Missing, ", "))
	}
	if len(t.Invalid) > 0 {
		fields := make([]string, 0, len(t.Invalid))
		for field := range t.Invalid {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			parts = append(parts, fmt.Sprintf("%s: %s", field, t.Invalid[field]))
		}
	}
	return "validation error: " + strings.Join(parts, "; ")
}

type ConflictError struct {
	Kind  consts.ConflictKind
	Value string
}

func (t ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %q is already in use", t.Kind, t.Value)
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (t NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", t.Entity, t.ID)
}

// StageError tags a failure with the pipeline stage it happened in.
type StageError struct {
	Stage consts.Stage
	Err   error
}

func (t StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", t.Stage, t.Err)
}

func (t StageError) Unwrap() error {
	return t.Err
}

type TeardownError struct {
	Step consts.TeardownStep
	Err  error
}

func (t TeardownError) Error() string {
	return fmt.Sprintf("teardown step %s failed: %v", t.Step, t.Err)
}

func (t TeardownError) Unwrap() error {
	return t.Err
}

type PermissionsError struct {
	Err error
}

func (t PermissionsError) Error() string {
	return fmt.Sprintf("error in permissions: %v", t.Err)
}

func (t PermissionsError) Unwrap() error {
	return t.Err
}
