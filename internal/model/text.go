package model

import "encoding/json"

// Text is an optional string that keeps "absent" distinct from "empty".
// The zero value is absent.
type Text struct {
	value   string
	present bool
}

// NewText returns a present Text holding s, which may be empty.
func NewText(s string) Text {
	return Text{value: s, present: true}
}

// TextFromPtr returns an absent Text for nil and a present one otherwise.
func TextFromPtr(p *string) Text {
	if p == nil {
		return Text{}
	}
	return NewText(*p)
}

// Present reports whether the field exists, even if it is empty.
func (t Text) Present() bool { return t.present }

// Value returns the string value, or "" when absent.
func (t Text) Value() string { return t.value }

// IsEmpty reports whether the field is present and holds the empty string.
func (t Text) IsEmpty() bool { return t.present && t.value == "" }

// Equal reports whether both fields are absent, or both present with the same value.
func (t Text) Equal(o Text) bool {
	return t.present == o.present && t.value == o.value
}

// Ptr returns nil when absent and a pointer to a copy of the value otherwise.
func (t Text) Ptr() *string {
	if !t.present {
		return nil
	}
	v := t.value
	return &v
}

// MarshalJSON encodes an absent Text as null.
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Ptr())
}

// UnmarshalJSON decodes null as absent.
func (t *Text) UnmarshalJSON(data []byte) error {
	var p *string
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = TextFromPtr(p)
	return nil
}
