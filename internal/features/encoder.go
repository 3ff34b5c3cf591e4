package features

import (
	"encoding/json"
	"fmt"
	"sort"
)

// fallbackCode is substituted for values never seen during training. It is the
// code of the first known category of the column.
const fallbackCode = 0

// Encoder maps the categories of one column to integer codes. The code of a
// category is its position in the sorted category list.
type Encoder struct {
	classes []string
	index   map[string]int
}

// FitEncoder learns the distinct values of a column in sorted order.
// Fitting the same values twice yields the same codes.
func FitEncoder(values []string) *Encoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)

	e, _ := NewEncoder(classes)
	return e
}

// NewEncoder rebuilds an encoder from a persisted category list. The list order
// is authoritative; duplicates are rejected.
func NewEncoder(classes []string) (*Encoder, error) {
	e := &Encoder{
		classes: append([]string(nil), classes...),
		index:   make(map[string]int, len(classes)),
	}
	for i, c := range e.classes {
		if _, dup := e.index[c]; dup {
			return nil, fmt.Errorf("duplicate category %q", c)
		}
		e.index[c] = i
	}
	return e, nil
}

// Classes returns a copy of the known categories in code order.
func (e *Encoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Lookup returns the learned code of value and whether it was known.
func (e *Encoder) Lookup(value string) (int, bool) {
	code, ok := e.index[value]
	return code, ok
}

// Encode returns the learned code of value, or the fallback code when the
// value was not seen during training.
func (e *Encoder) Encode(value string) int {
	if code, ok := e.Lookup(value); ok {
		return code
	}
	return fallbackCode
}

// EncoderTable holds one Encoder per categorical column.
type EncoderTable struct {
	encoders map[string]*Encoder
}

// FitEncoderTable fits an encoder for every column in columns.
func FitEncoderTable(columns map[string][]string) *EncoderTable {
	t := &EncoderTable{encoders: make(map[string]*Encoder, len(columns))}
	for name, values := range columns {
		t.encoders[name] = FitEncoder(values)
	}
	return t
}

// Columns returns the encoded column names, sorted.
func (t *EncoderTable) Columns() []string {
	names := make([]string, 0, len(t.encoders))
	for name := range t.encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encoder returns the encoder of column, if any.
func (t *EncoderTable) Encoder(column string) (*Encoder, bool) {
	e, ok := t.encoders[column]
	return e, ok
}

// Encode maps value to its code in column. Unseen values, and columns the
// table does not know, yield the fallback code.
func (t *EncoderTable) Encode(column, value string) int {
	code, _ := t.EncodeObserved(column, value)
	return code
}

// EncodeObserved is Encode that also reports whether the fallback was used.
func (t *EncoderTable) EncodeObserved(column, value string) (code int, fellBack bool) {
	e, ok := t.encoders[column]
	if !ok {
		return fallbackCode, true
	}
	if code, ok := e.Lookup(value); ok {
		return code, false
	}
	return fallbackCode, true
}

// MarshalJSON writes the table as {"column": ["category", ...]}.
func (t *EncoderTable) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(t.encoders))
	for name, e := range t.encoders {
		out[name] = e.classes
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a table written by MarshalJSON.
func (t *EncoderTable) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	encoders := make(map[string]*Encoder, len(raw))
	for name, classes := range raw {
		if len(classes) == 0 {
			return fmt.Errorf("column %s: no categories", name)
		}
		e, err := NewEncoder(classes)
		if err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		encoders[name] = e
	}
	t.encoders = encoders
	return nil
}
