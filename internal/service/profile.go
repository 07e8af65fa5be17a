package service

import (
	"sort"
)

// NegotiationResult is the outcome of a field-negotiated write.
// OK with a non-empty NotSaved means some fields were dropped; !OK means
// nothing was saved and NotSaved lists every requested field.
type NegotiationResult struct {
	OK       bool           `json:"ok"`
	NotSaved []string       `json:"not_saved"`
	Payload  map[string]any `json:"-"`
}

// NegotiateFields writes requested as one payload. When the write fails and
// rejected names columns present in the payload, those keys are dropped and
// the write is retried, until it succeeds or nothing is left to write. Errors
// that name no droppable column fail immediately and are returned.
func NegotiateFields(requested map[string]any, write func(map[string]any) error, rejected func(error) []string) (NegotiationResult, error) {
	if len(requested) == 0 {
		return NegotiationResult{OK: false, NotSaved: []string{}}, nil
	}

	payload := make(map[string]any, len(requested))
	for k, v := range requested {
		payload[k] = v
	}
	var dropped []string

	for {
		err := write(payload)
		if err == nil {
			sort.Strings(dropped)
			if dropped == nil {
				dropped = []string{}
			}
			return NegotiationResult{OK: true, NotSaved: dropped, Payload: payload}, nil
		}

		removed := 0
		for _, column := range rejected(err) {
			if _, ok := payload[column]; !ok {
				continue
			}
			delete(payload, column)
			dropped = append(dropped, column)
			removed++
		}
		if removed == 0 || len(payload) == 0 {
			return NegotiationResult{OK: false, NotSaved: sortedKeys(requested)}, err
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
