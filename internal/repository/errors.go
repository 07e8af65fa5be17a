package repository

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("already exists")
	ErrAlreadyCompleted = errors.New("task already completed")
)

// SchemaMismatchError reports a write that referenced columns the store does not have.
type SchemaMismatchError struct {
	Columns []string
	Err     error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: missing column(s) %s: %v", strings.Join(e.Columns, ", "), e.Err)
}

func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}

var missingColumnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Could not find the '([^']+)' column`),
	regexp.MustCompile(`column "([^"]+)"(?: of relation "[^"]+")? does not exist`),
	regexp.MustCompile(`no such column: ([A-Za-z0-9_."]+)`),
	regexp.MustCompile(`has no column named ([A-Za-z0-9_]+)`),
}

// MissingColumns extracts the column names an error message says do not exist.
func MissingColumns(err error) []string {
	if err == nil {
		return nil
	}
	var mismatch *SchemaMismatchError
	if errors.As(err, &mismatch) {
		return append([]string(nil), mismatch.Columns...)
	}

	msg := err.Error()
	seen := make(map[string]struct{})
	var columns []string
	for _, pattern := range missingColumnPatterns {
		for _, match := range pattern.FindAllStringSubmatch(msg, -1) {
			name := strings.Trim(match[1], `"`)
			if idx := strings.LastIndex(name, "."); idx >= 0 {
				name = name[idx+1:]
			}
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			columns = append(columns, name)
		}
	}
	return columns
}

// classify maps driver errors onto the package's error taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"),
		strings.Contains(err.Error(), "duplicate key value"):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	if columns := MissingColumns(err); len(columns) > 0 {
		return &SchemaMismatchError{Columns: columns, Err: err}
	}
	return err
}
