package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Label identifies one of the four option slots of a question.
// The zero value means "no answer selected".
type Label string

const (
	LabelNone Label = ""
	LabelA    Label = "A"
	LabelB    Label = "B"
	LabelC    Label = "C"
	LabelD    Label = "D"
)

// OptionCount is the fixed number of options per question.
const OptionCount = 4

// Labels lists the option labels in positional order.
var Labels = [OptionCount]Label{LabelA, LabelB, LabelC, LabelD}

// Index returns the positional index of the label, or -1 for an unknown label.
func (l Label) Index() int {
	for i, v := range Labels {
		if v == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of A–D.
func (l Label) Valid() bool { return l.Index() >= 0 }

// ParseLabel accepts upper or lower case labels ("a" and "A" are equivalent).
func ParseLabel(s string) (Label, bool) {
	l := Label(strings.ToUpper(strings.TrimSpace(s)))
	return l, l.Valid()
}

// Options holds the four option texts, addressed by position.
// On the wire it is the collaborator's {"a","b","c","d"} object.
type Options [OptionCount]string

type optionsWire struct {
	A string `json:"a"`
	B string `json:"b"`
	C string `json:"c"`
	D string `json:"d"`
}

// Text returns the text under the given label.
func (o Options) Text(l Label) string {
	i := l.Index()
	if i < 0 {
		return ""
	}
	return o[i]
}

// MarshalJSON encodes the options as the collaborator's lower-case keyed object.
func (o Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionsWire{A: o[0], B: o[1], C: o[2], D: o[3]})
}

// UnmarshalJSON decodes the collaborator's lower-case keyed object.
func (o *Options) UnmarshalJSON(data []byte) error {
	var w optionsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Options{w.A, w.B, w.C, w.D}
	return nil
}

// Question is a single multiple-choice question as served by the quiz backend.
type Question struct {
	ID      string  `json:"_id,omitempty"`
	Text    string  `json:"question"`
	Options Options `json:"options"`
	Correct Label   `json:"correct"`
}

// Answers is the per-question answer sheet. Unset slots are encoded as JSON null.
type Answers []Label

// NewAnswers returns an answer sheet of n unset slots.
func NewAnswers(n int) Answers {
	return make(Answers, n)
}

// Unanswered counts unset slots.
func (a Answers) Unanswered() int {
	n := 0
	for _, v := range a {
		if v == LabelNone {
			n++
		}
	}
	return n
}

// Answered returns the indexes of answered slots in ascending order.
func (a Answers) Answered() []int {
	idx := make([]int, 0, len(a))
	for i, v := range a {
		if v != LabelNone {
			idx = append(idx, i)
		}
	}
	return idx
}

// Clone returns an independent copy.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	copy(out, a)
	return out
}

// Fit returns a copy resized to n slots, dropping extra and padding with unset.
func (a Answers) Fit(n int) Answers {
	out := make(Answers, n)
	copy(out, a)
	return out
}

// MarshalJSON writes unset slots as null.
func (a Answers) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	raw := make([]*string, len(a))
	for i, v := range a {
		if v != LabelNone {
			s := string(v)
			raw[i] = &s
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON reads null, empty and unknown labels as unset.
func (a *Answers) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = nil
		return nil
	}
	var raw []*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Answers, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if l, ok := ParseLabel(*v); ok {
			out[i] = l
		}
	}
	*a = out
	return nil
}
