package textutil

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "Down Town", want: "down-town"},
		{name: "keeps existing hyphens", input: "down-town", want: "down-town"},
		{name: "collapses whitespace runs", input: "  Harbour \t  View  ", want: "harbour-view"},
		{name: "collapses repeated hyphens", input: "a--b---c", want: "a-b-c"},
		{name: "strips punctuation", input: "Joe's Place!", want: "joes-place"},
		{name: "folds diacritics", input: "Café São", want: "cafe-sao"},
		{name: "strips underscores", input: "north_branch", want: "northbranch"},
		{name: "empty input", input: "", want: ""},
		{name: "only separators", input: " -- ", want: ""},
		{name: "digits survive", input: "Branch 42", want: "branch-42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Slugify(tc.input); got != tc.want {
				t.Fatalf("Slugify(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
