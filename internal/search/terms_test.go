package search

import (
	"reflect"
	"testing"
)

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "drops stop and kind words",
			query: "find all methods for payment",
			want:  []string{"payment"},
		},
		{
			name:  "short words discarded",
			query: "get the user id",
			want:  []string{"user"},
		},
		{
			name:  "russian endings trimmed",
			query: "методы отправки сообщений",
			want:  []string{"отправк", "сообщен"},
		},
		{
			name:  "empty query",
			query: "   ",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueryTerms(tt.query); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("QueryTerms(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestQueryTermsStemsToPrefix(t *testing.T) {
	terms := QueryTerms("sending messages")
	if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %v", terms)
	}
	// Stems must remain prefixes of the original words so substring
	// matching still finds them in stored text.
	for i, original := range []string{"sending", "messages"} {
		if len(terms[i]) > len(original) || original[:len(terms[i])] != terms[i] {
			t.Errorf("term %q is not a prefix of %q", terms[i], original)
		}
	}
}

func TestTrimRussianEnding(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"сообщений", "сообщен"},
		{"отправки", "отправк"},
		{"статусами", "статус"},
		{"код", "код"}, // too short to trim
	}
	for _, tt := range tests {
		if got := trimRussianEnding(tt.word); got != tt.want {
			t.Errorf("trimRussianEnding(%q) = %q, want %q", tt.word, got, tt.want)
		}
	}
}
