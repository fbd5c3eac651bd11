// Package text implements normalization of raw post text ahead of
// translation and classification. Cleaning is a pure, total function: it
// never fails, returns "" for degenerate input, and is idempotent, so text
// that is already clean passes through unchanged.
package text

import (
	"regexp"
	"strings"
)

var (
	// urlRE matches full URLs plus the bare domain suffixes that commonly
	// survive copy-pasted links in post text.
	urlRE = regexp.MustCompile(`http\S+|www\.\S+|\.com|\.org|\.net|\.bsky\.social`)

	// mentionRE matches @handles and #hashtags. BlueSky handles are domains,
	// so dotted segments belong to the mention.
	mentionRE = regexp.MustCompile(`[@#]\w+(?:\.\w+)*`)

	// disallowedRE matches every character outside letters, digits,
	// whitespace, and the small punctuation set the classifier tolerates.
	disallowedRE = regexp.MustCompile(`[^a-z0-9\s!?.,']`)

	whitespaceRE = regexp.MustCompile(`\s+`)

	// negationRE expands the generic n't suffix ("doesn't" → "does not").
	// Irregular forms are handled by the contraction map first.
	negationRE = regexp.MustCompile(`\b([a-z]+)n't\b`)
)

// contractionMap covers irregular contractions and the pronoun+'s forms that
// the suffix rules below cannot derive. Keys are lowercase.
var contractionMap = map[string]string{
	"won't":   "will not",
	"can't":   "cannot",
	"shan't":  "shall not",
	"ain't":   "is not",
	"let's":   "let us",
	"it's":    "it is",
	"that's":  "that is",
	"what's":  "what is",
	"there's": "there is",
	"here's":  "here is",
	"he's":    "he is",
	"she's":   "she is",
	"who's":   "who is",
	"i'm":     "i am",
}

// suffixRules expand regular contraction endings after the map pass.
var suffixRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\b([a-z]+)'re\b`), "$1 are"},
	{regexp.MustCompile(`\b([a-z]+)'ve\b`), "$1 have"},
	{regexp.MustCompile(`\b([a-z]+)'ll\b`), "$1 will"},
	{regexp.MustCompile(`\b([a-z]+)'d\b`), "$1 would"},
}

// Clean normalizes raw post text: lowercases, expands contractions, strips
// URLs, mentions, hashtags and disallowed characters, and collapses
// whitespace. The substitution passes repeat until the text stops changing:
// removing a character can splice the remainder into a pattern an earlier
// pass would have caught ("foo.c|om" becomes "foo.com" once the bar is
// dropped), so a single ordered sweep is not enough.
// Clean(Clean(s)) == Clean(s) for all s.
func Clean(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	s = strings.ToLower(s)
	for {
		next := expandContractions(s)
		next = urlRE.ReplaceAllString(next, "")
		next = mentionRE.ReplaceAllString(next, "")
		next = disallowedRE.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = whitespaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// expandContractions rewrites common English contractions into their full
// forms. Possessive 's is left alone.
func expandContractions(s string) string {
	words := strings.Fields(s)
	changed := false
	for i, w := range words {
		// Strip trailing sentence punctuation before map lookup.
		trimmed := strings.TrimRight(w, "!?.,")
		if full, ok := contractionMap[trimmed]; ok {
			words[i] = full + w[len(trimmed):]
			changed = true
		}
	}
	if changed {
		s = strings.Join(words, " ")
	}

	s = negationRE.ReplaceAllString(s, "$1 not")
	for _, r := range suffixRules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}
