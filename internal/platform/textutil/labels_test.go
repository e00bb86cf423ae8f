package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeStringMap(t *testing.T) {
	got := NormalizeStringMap(map[string]string{
		" spice ":  " hot ",
		"allergen": "peanut",
		"blank":    " ",
		"  ":       "dropped",
		"":         "dropped",
	})
	want := map[string]string{
		"spice":    "hot",
		"allergen": "peanut",
		"blank":    "",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestNormalizeStringMapEmpty(t *testing.T) {
	if NormalizeStringMap(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
	if NormalizeStringMap(map[string]string{" ": "x"}) != nil {
		t.Fatal("expected nil when no entry survives")
	}
}
