package exam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnswerKey is a question's correctAnswers, tagged by question type.
//
//	multipleChoice: ["<zero-based option index>"]
//	trueFalse:      true | false
//	essay:          ["reference answer", ...]
type AnswerKey struct {
	Type       QuestionType
	Option     string
	Truth      bool
	References []string
}

func MultipleChoiceKey(option int) AnswerKey {
	return AnswerKey{Type: TypeMultipleChoice, Option: strconv.Itoa(option)}
}

func TrueFalseKey(v bool) AnswerKey {
	return AnswerKey{Type: TypeTrueFalse, Truth: v}
}

func EssayKey(refs ...string) AnswerKey {
	return AnswerKey{Type: TypeEssay, References: refs}
}

func (k AnswerKey) MarshalJSON() ([]byte, error) {
	switch k.Type {
	case TypeMultipleChoice:
		return json.Marshal([]string{k.Option})
	case TypeTrueFalse:
		return json.Marshal(k.Truth)
	case TypeEssay:
		refs := k.References
		if refs == nil {
			refs = []string{}
		}
		return json.Marshal(refs)
	}
	return nil, fmt.Errorf("answer key: unknown question type %q", k.Type)
}

// ParseAnswerKey decodes a raw correctAnswers value for a question of type t.
func ParseAnswerKey(t QuestionType, raw json.RawMessage) (AnswerKey, error) {
	key := AnswerKey{Type: t}
	switch t {
	case TypeMultipleChoice:
		var opts []string
		if err := json.Unmarshal(raw, &opts); err != nil || len(opts) != 1 {
			return AnswerKey{}, fmt.Errorf("%w: multipleChoice correctAnswers must be a one-element list of an option index", ErrValidation)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(opts[0]))
		if err != nil {
			return AnswerKey{}, fmt.Errorf("%w: correct option %q is not an option index", ErrValidation, opts[0])
		}
		key.Option = strconv.Itoa(idx)
	case TypeTrueFalse:
		if err := json.Unmarshal(raw, &key.Truth); err != nil {
			return AnswerKey{}, fmt.Errorf("%w: trueFalse correctAnswers must be a boolean", ErrValidation)
		}
	case TypeEssay:
		if err := json.Unmarshal(raw, &key.References); err != nil {
			return AnswerKey{}, fmt.Errorf("%w: essay correctAnswers must be a list of strings", ErrValidation)
		}
	default:
		return AnswerKey{}, fmt.Errorf("%w: unknown question type %q", ErrValidation, t)
	}
	return key, nil
}

// Response is a submitted answer value, tagged by question type.
//
//	multipleChoice: list of selected option indexes (a bare index is accepted on input)
//	trueFalse:      boolean ("true"/"false" strings are accepted on input)
//	essay:          free text
type Response struct {
	Type     QuestionType
	Selected []string
	Truth    bool
	Text     string
}

func ChoiceResponse(selected ...string) Response {
	return Response{Type: TypeMultipleChoice, Selected: selected}
}

func TrueFalseResponse(v bool) Response {
	return Response{Type: TypeTrueFalse, Truth: v}
}

func EssayResponse(text string) Response {
	return Response{Type: TypeEssay, Text: text}
}

func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case TypeMultipleChoice:
		sel := r.Selected
		if sel == nil {
			sel = []string{}
		}
		return json.Marshal(sel)
	case TypeTrueFalse:
		return json.Marshal(r.Truth)
	case TypeEssay:
		return json.Marshal(r.Text)
	}
	return []byte("null"), nil
}

// UnmarshalJSON reads back the canonical encoding produced by MarshalJSON,
// where each question type has a distinct JSON shape.
func (r *Response) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = Response{}
		return nil
	}
	var t QuestionType
	switch b[0] {
	case '[':
		t = TypeMultipleChoice
	case '"':
		t = TypeEssay
	default:
		t = TypeTrueFalse
	}
	parsed, err := ParseResponse(t, b)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseResponse decodes a raw submitted answer for a question of type t.
func ParseResponse(t QuestionType, raw json.RawMessage) (Response, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return Response{}, fmt.Errorf("%w: answer is required", ErrValidation)
	}
	r := Response{Type: t}
	switch t {
	case TypeMultipleChoice:
		var list []json.RawMessage
		if raw[0] == '[' {
			if err := json.Unmarshal(raw, &list); err != nil {
				return Response{}, fmt.Errorf("%w: multipleChoice answer must be an option index", ErrValidation)
			}
		} else {
			list = []json.RawMessage{raw}
		}
		for _, item := range list {
			idx, ok := scalarString(item)
			if !ok {
				return Response{}, fmt.Errorf("%w: multipleChoice answer must be an option index", ErrValidation)
			}
			r.Selected = append(r.Selected, canonicalIndex(idx))
		}
	case TypeTrueFalse:
		if err := json.Unmarshal(raw, &r.Truth); err != nil {
			s, ok := scalarString(raw)
			if !ok {
				return Response{}, fmt.Errorf("%w: trueFalse answer must be a boolean", ErrValidation)
			}
			v, perr := strconv.ParseBool(s)
			if perr != nil {
				return Response{}, fmt.Errorf("%w: trueFalse answer must be a boolean", ErrValidation)
			}
			r.Truth = v
		}
	case TypeEssay:
		if err := json.Unmarshal(raw, &r.Text); err != nil {
			return Response{}, fmt.Errorf("%w: essay answer must be text", ErrValidation)
		}
	default:
		return Response{}, fmt.Errorf("%w: unknown question type %q", ErrValidation, t)
	}
	return r, nil
}

// scalarString accepts a JSON string or number and returns it as trimmed text.
func scalarString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String(), true
	}
	return "", false
}

// canonicalIndex rewrites integer text like "01" or "+1" as "1" so that
// keys and selections compare by value. Other text is returned unchanged.
func canonicalIndex(s string) string {
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n)
	}
	return s
}
