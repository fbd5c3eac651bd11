package text

import "testing"

func TestClean_Basics(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"lowercases", "Hello World", "hello world"},
		{"strips urls", "look https://example.com/a?b=c now", "look now"},
		{"strips bare domains", "see example.com and foo.bsky.social", "see example and foo"},
		{"strips mentions and hashtags", "hi @alice.bsky check #GoLang", "hi check"},
		{"keeps allowed punctuation", "wait, really?! yes.", "wait, really?! yes."},
		{"drops emoji and symbols", "great 🎉 100% *sure*", "great 100 sure"},
		{"collapses whitespace", "a   b\t\nc", "a b c"},
		{"spliced domain still stripped", "foo.c|om bar", "foo bar"},
		{"spliced www prefix still stripped", "visit www|.example now", "visit now"},
		{"spliced contraction still expanded", "do|n't stop", "do not stop"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestClean_Contractions(t *testing.T) {
	cases := map[string]string{
		"I can't believe it":  "i cannot believe it",
		"they won't stop":     "they will not stop",
		"doesn't work":        "does not work",
		"we're happy":         "we are happy",
		"I've seen it":        "i have seen it",
		"she'll know":         "she will know",
		"it's fine.":          "it is fine.",
		"let's go":            "let us go",
		"the cat's toy":       "the cat's toy", // possessive untouched
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Fatalf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"I can't wait! Visit https://x.org #hype @bob 🎉",
		"Terrible day, honestly...",
		"it's what's there's who's don't",
		"",
		"already clean text",
		// Stripping a disallowed character must not splice the remainder
		// into a pattern only a repeated pass would catch.
		"foo.c|om bar",
		"visit www|.example now",
		"do|n't stop",
		"see @ali|ce.bsky hi",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Fatalf("Clean not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}
