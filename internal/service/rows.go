package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"questboard/internal/model"
	"questboard/internal/repository"
)

// resolveOwned resolves ref and rejects rows that belong to another user.
func resolveOwned(ctx context.Context, lookup repository.RowLookup, email, ref string) (repository.Resolution, error) {
	res, ok := repository.ResolveTask(ctx, lookup, email, ref)
	if !ok {
		return repository.Resolution{}, ErrTaskNotFound
	}
	if owner := rowString(res.Row, "email"); owner != "" && model.NormalizeEmail(owner) != email {
		return repository.Resolution{}, ErrTaskNotFound
	}
	return res, nil
}

func rowString(row map[string]any, column string) string {
	switch v := row[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func rowInt(row map[string]any, column string) int {
	switch v := row[column].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string, []byte:
		n, err := strconv.Atoi(strings.TrimSpace(rowString(row, column)))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
