package filter

import (
	"reflect"
	"testing"
)

func TestToStringSet(t *testing.T) {
	if ToStringSet(nil) != nil {
		t.Error("ToStringSet(nil) should be nil")
	}
	set := ToStringSet([]string{"a", "b", "a"})
	if len(set) != 2 {
		t.Errorf("len = %d, want 2", len(set))
	}
}

func TestDifference(t *testing.T) {
	tests := []struct {
		a, b []string
		want []string
	}{
		{[]string{"ui", "new"}, []string{"ui", "old"}, []string{"new"}},
		{[]string{"c", "a", "b"}, nil, []string{"a", "b", "c"}},
		{[]string{"a", "a"}, nil, []string{"a"}},
		{[]string{"a"}, []string{"a"}, nil},
		{nil, []string{"a"}, nil},
	}

	for _, tt := range tests {
		if got := Difference(tt.a, tt.b); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Difference(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"b", "", "a", "b"})
	if !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Dedupe = %v", got)
	}
	if Dedupe(nil) == nil {
		t.Error("Dedupe(nil) should return an empty, non-nil slice")
	}
}
