package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Answer is a normalized choice: a sorted, de-duplicated set of option indices.
// Multi records whether it came from an array (multi-select) or a single index.
// Equality is set equality, so a single-choice comparison is the singleton case.
type Answer struct {
	indices []int
	multi   bool
}

// SingleAnswer builds a single-choice answer.
func SingleAnswer(index int) Answer {
	return Answer{indices: []int{index}}
}

// NewAnswer builds an answer from option indices. Negative indices are malformed.
func NewAnswer(indices []int, multi bool) (Answer, error) {
	set := make([]int, 0, len(indices))
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 {
			return Answer{}, fmt.Errorf("negative option index %d: %w", idx, ErrMalformedInput)
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		set = append(set, idx)
	}
	sort.Ints(set)
	return Answer{indices: set, multi: multi}, nil
}

// Indices returns a copy of the selected option indices in ascending order.
func (a Answer) Indices() []int {
	out := make([]int, len(a.indices))
	copy(out, a.indices)
	return out
}

// Multi reports whether the answer is a multi-select answer.
func (a Answer) Multi() bool { return a.multi }

// IsEmpty reports whether no option is selected.
func (a Answer) IsEmpty() bool { return len(a.indices) == 0 }

// Equal reports unordered, duplicate-insensitive equality of the selections.
func (a Answer) Equal(b Answer) bool {
	if len(a.indices) != len(b.indices) {
		return false
	}
	for i := range a.indices {
		if a.indices[i] != b.indices[i] {
			return false
		}
	}
	return true
}

// MarshalJSON writes a single index for single-choice answers and an array otherwise.
func (a Answer) MarshalJSON() ([]byte, error) {
	if !a.multi && len(a.indices) == 1 {
		return json.Marshal(a.indices[0])
	}
	return json.Marshal(a.Indices())
}

// AnswerKey maps question id to the correct answer. Never sent to clients.
type AnswerKey map[string]Answer

// Clone returns a copy that shares no state with k.
func (k AnswerKey) Clone() AnswerKey {
	out := make(AnswerKey, len(k))
	for qid, ans := range k {
		out[qid] = Answer{indices: ans.Indices(), multi: ans.multi}
	}
	return out
}

// Validate rejects empty question ids and questions without a correct option.
func (k AnswerKey) Validate() error {
	for qid, ans := range k {
		if strings.TrimSpace(qid) == "" {
			return fmt.Errorf("empty question id: %w", ErrMalformedInput)
		}
		if ans.IsEmpty() {
			return fmt.Errorf("question %q has no correct option: %w", qid, ErrMalformedInput)
		}
	}
	return nil
}

// SubmittedAnswers maps question id to the student's choice for one submission.
type SubmittedAnswers map[string]Answer

// ParseAnswerKey parses a serialized answer key of the form
// {"<question id>": <index> | [<index>, ...]}.
func ParseAnswerKey(raw []byte) (AnswerKey, error) {
	m, err := parseAnswerMap(raw, false)
	if err != nil {
		return nil, err
	}
	key := AnswerKey(m)
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return key, nil
}

// ParseSubmittedAnswers parses a submission payload. An empty array or null
// is an unanswered question, not an error.
func ParseSubmittedAnswers(raw []byte) (SubmittedAnswers, error) {
	m, err := parseAnswerMap(raw, true)
	if err != nil {
		return nil, err
	}
	return SubmittedAnswers(m), nil
}

func parseAnswerMap(raw []byte, allowNull bool) (map[string]Answer, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid JSON: %w", ErrMalformedInput)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected an object of question answers: %w", ErrMalformedInput)
	}

	out := make(map[string]Answer)
	var parseErr error
	doc.ForEach(func(k, v gjson.Result) bool {
		qid := k.String()
		if strings.TrimSpace(qid) == "" {
			parseErr = fmt.Errorf("empty question id: %w", ErrMalformedInput)
			return false
		}
		ans, err := parseAnswerValue(v, allowNull)
		if err != nil {
			parseErr = fmt.Errorf("question %q: %w", qid, err)
			return false
		}
		out[qid] = ans
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

func parseAnswerValue(v gjson.Result, allowNull bool) (Answer, error) {
	switch {
	case allowNull && v.Type == gjson.Null:
		return Answer{}, nil
	case v.Type == gjson.Number:
		idx, err := parseIndex(v)
		if err != nil {
			return Answer{}, err
		}
		return NewAnswer([]int{idx}, false)
	case v.IsArray():
		items := v.Array()
		indices := make([]int, 0, len(items))
		for _, item := range items {
			if item.Type != gjson.Number {
				return Answer{}, fmt.Errorf("non-numeric option %s: %w", item.Raw, ErrMalformedInput)
			}
			idx, err := parseIndex(item)
			if err != nil {
				return Answer{}, err
			}
			indices = append(indices, idx)
		}
		return NewAnswer(indices, true)
	default:
		return Answer{}, fmt.Errorf("unexpected value %s: %w", v.Raw, ErrMalformedInput)
	}
}

// parseIndex accepts only integral JSON numbers ("2", not "2.0" or "2e0").
func parseIndex(v gjson.Result) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(v.Raw))
	if err != nil {
		return 0, fmt.Errorf("option index %s is not an integer: %w", v.Raw, ErrMalformedInput)
	}
	return idx, nil
}
