package session

import (
	"reflect"
	"testing"
)

func TestSplitQuestions(t *testing.T) {
	cases := []struct {
		name  string
		block string
		want  []string
	}{
		{
			name:  "numbered",
			block: "Here are some questions:\n1. What drives churn?\n2) Is tenure skewed?\n",
			want:  []string{"What drives churn?", "Is tenure skewed?"},
		},
		{
			name:  "bullets with continuation",
			block: "- Which plans have the\n  highest price?\n* Are there outliers?",
			want:  []string{"Which plans have the highest price?", "Are there outliers?"},
		},
		{
			name:  "no markers",
			block: "What is the average price?\n\nHow many rows are missing?",
			want:  []string{"What is the average price?", "How many rows are missing?"},
		},
		{
			name:  "empty",
			block: "  \n",
			want:  nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitQuestions(tc.block)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestHasQuestion(t *testing.T) {
	block := "1. What drives churn\n   among basic users?\n2. Is tenure skewed?"
	cases := []struct {
		q    string
		want bool
	}{
		{"What drives churn among basic users?", true},
		{"Is tenure skewed?", true},
		{"2. Is tenure skewed?", true},
		{"churn", false},
		{"What drives churn", false},
		{"  ", false},
	}
	for _, tc := range cases {
		if got := HasQuestion(block, tc.q); got != tc.want {
			t.Errorf("HasQuestion(%q) = %v, want %v", tc.q, got, tc.want)
		}
	}
}
