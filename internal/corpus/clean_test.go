package corpus

import (
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lower-cases and collapses whitespace",
			in:   "  Hello   WORLD \n\t again ",
			want: "hello world again",
		},
		{
			name: "expands contractions",
			in:   "I'd say we'll go, they've left, I'm here and you're late",
			want: "i would say we will go, they have left, i am here and you are late",
		},
		{
			name: "negation and possessive",
			in:   "Don't STOP! It's fine.",
			want: "do not stop! it is fine.",
		},
		{
			name: "drops characters outside the alphabet",
			in:   "café-time (2024) #tags @you",
			want: "caf time 2024 tags you",
		},
		{
			name: "nfkc folds compatibility characters",
			in:   "Ｈｅｌｌｏ ﬁne",
			want: "hello fine",
		},
		{
			name: "keeps unmatched apostrophes",
			in:   "rock'n'roll",
			want: "rock'n'roll",
		},
		{
			name: "empty",
			in:   " \n ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Fatalf("Clean(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Hello, world! it's 42 o'clock.")
	want := []string{"hello", ",", "world", "!", "it", "s", "o", "clock", "."}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %q; want %q", got, want)
	}

	if got := Tokenize("123 456"); len(got) != 0 {
		t.Fatalf("Tokenize(digits) = %q; want none", got)
	}
}

func TestCleanThenTokenize(t *testing.T) {
	got := Tokenize(Clean("They're NOT here? Don't worry."))
	want := []string{"they", "are", "not", "here", "?", "do", "not", "worry", "."}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %q; want %q", got, want)
	}
}
