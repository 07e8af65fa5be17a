package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// RowLookup is the read surface the task resolver needs.
type RowLookup interface {
	LookupTask(ctx context.Context, column string, value any) (map[string]any, error)
	RecentTasks(ctx context.Context, email string, limit int) ([]map[string]any, error)
}

// KeyCandidate is one (column, type) pair tried when resolving a task reference.
type KeyCandidate struct {
	Column  string
	Integer bool
}

// TaskKeyCandidates is the resolution order. Legacy schemas keyed tasks by
// task_id; current ones use id.
var TaskKeyCandidates = []KeyCandidate{
	{Column: "task_id", Integer: true},
	{Column: "task_id", Integer: false},
	{Column: "id", Integer: true},
	{Column: "id", Integer: false},
}

// RecentScanLimit bounds the last-resort scan over a user's newest tasks.
const RecentScanLimit = 20

// ScanPath marks a resolution found by scanning recent rows.
const ScanPath = -1

// Resolution is a task row located by ResolveTask.
type Resolution struct {
	Row  map[string]any
	Key  TaskKey
	Path int
}

// ResolveTask finds a task by reference, trying each TaskKeyCandidates entry in
// order and finally scanning the owner's recent tasks for a row whose serialised
// form contains the reference. Rows owned by another user are skipped. An
// integer reference that misses every key column is not scanned for: it names
// a row that is gone, and its digits would match timestamps of unrelated rows.
// Lookup errors count as misses; ok is false when nothing matches.
func ResolveTask(ctx context.Context, lookup RowLookup, email, ref string) (Resolution, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resolution{}, false
	}

	intRef, intErr := strconv.ParseInt(ref, 10, 64)
	for i, candidate := range TaskKeyCandidates {
		var value any = ref
		if candidate.Integer {
			if intErr != nil {
				continue
			}
			value = intRef
		}
		row, err := lookup.LookupTask(ctx, candidate.Column, value)
		if err != nil || row == nil || !ownedBy(row, email) {
			continue
		}
		key := TaskKey{Column: candidate.Column, Value: row[candidate.Column]}
		if key.Value == nil {
			key.Value = value
		}
		return Resolution{Row: row, Key: key, Path: i}, true
	}

	if intErr == nil {
		return Resolution{}, false
	}

	rows, err := lookup.RecentTasks(ctx, email, RecentScanLimit)
	if err != nil {
		return Resolution{}, false
	}
	for _, row := range rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			continue
		}
		if strings.Contains(string(encoded), ref) {
			key, ok := RowKey(row)
			if !ok {
				continue
			}
			return Resolution{Row: row, Key: key, Path: ScanPath}, true
		}
	}
	return Resolution{}, false
}

// ownedBy reports whether row belongs to email. Rows without an owner column
// are accepted.
func ownedBy(row map[string]any, email string) bool {
	var owner string
	switch v := row["email"].(type) {
	case nil:
		return true
	case string:
		owner = v
	case []byte:
		owner = string(v)
	default:
		return true
	}
	owner = strings.TrimSpace(owner)
	return owner == "" || strings.EqualFold(owner, strings.TrimSpace(email))
}

// RowKey picks the primary key of a raw task row, preferring id over task_id.
func RowKey(row map[string]any) (TaskKey, bool) {
	for _, column := range []string{"id", "task_id"} {
		if value, ok := row[column]; ok && value != nil {
			return TaskKey{Column: column, Value: value}, true
		}
	}
	return TaskKey{}, false
}
