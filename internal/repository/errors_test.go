package repository

import (
	"errors"
	"reflect"
	"testing"

	"gorm.io/gorm"
)

func TestMissingColumnsRecognisesStoreMessages(t *testing.T) {
	cases := []struct {
		msg  string
		want []string
	}{
		{`{"message":"Could not find the 'bio' column of 'users' in the schema cache"}`, []string{"bio"}},
		{`ERROR: column "preferred_categories" of relation "users" does not exist (SQLSTATE 42703)`, []string{"preferred_categories"}},
		{`ERROR: column "task_id" does not exist`, []string{"task_id"}},
		{`no such column: unknown_field`, []string{"unknown_field"}},
		{`no such column: tasks.task_id`, []string{"task_id"}},
		{`table users has no column named avatar_url`, []string{"avatar_url"}},
		{`Could not find the 'a' column; Could not find the 'b' column; Could not find the 'a' column`, []string{"a", "b"}},
		{`permission denied for table users`, nil},
	}
	for _, tc := range cases {
		got := MissingColumns(errors.New(tc.msg))
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("MissingColumns(%q): expected %v, got %v", tc.msg, tc.want, got)
		}
	}
	if MissingColumns(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestClassify(t *testing.T) {
	if !errors.Is(classify(gorm.ErrRecordNotFound), ErrNotFound) {
		t.Fatalf("expected ErrNotFound")
	}
	if !errors.Is(classify(gorm.ErrDuplicatedKey), ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate")
	}
	if !errors.Is(classify(errors.New("UNIQUE constraint failed: users.email")), ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate from sqlite text")
	}

	var mismatch *SchemaMismatchError
	if !errors.As(classify(errors.New("no such column: bio")), &mismatch) {
		t.Fatalf("expected SchemaMismatchError")
	}
	if !reflect.DeepEqual(mismatch.Columns, []string{"bio"}) {
		t.Fatalf("unexpected columns %v", mismatch.Columns)
	}
	if !reflect.DeepEqual(MissingColumns(mismatch), []string{"bio"}) {
		t.Fatalf("expected columns to round-trip through the typed error")
	}

	plain := errors.New("connection reset")
	if classify(plain) != plain {
		t.Fatalf("expected other errors to pass through")
	}
}
