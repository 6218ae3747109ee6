package clustering

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

const fingerprintLength = 40

// KeywordOptions tunes keyword extraction. The bigram fallback targets titles
// written without spaces; its thresholds are heuristics, not invariants.
type KeywordOptions struct {
	MinTokenRunes int `yaml:"minTokenRunes"`
	MaxPerTitle   int `yaml:"maxPerTitle"`
	BigramWindow  int `yaml:"bigramWindow"`
}

// DefaultKeywordOptions returns the stock extraction thresholds.
func DefaultKeywordOptions() KeywordOptions {
	return KeywordOptions{MinTokenRunes: 2, MaxPerTitle: 6, BigramWindow: 8}
}

func (o KeywordOptions) withDefaults() KeywordOptions {
	def := DefaultKeywordOptions()
	if o.MinTokenRunes <= 0 {
		o.MinTokenRunes = def.MinTokenRunes
	}
	if o.MaxPerTitle <= 0 {
		o.MaxPerTitle = def.MaxPerTitle
	}
	if o.BigramWindow <= 0 {
		o.BigramWindow = def.BigramWindow
	}
	return o
}

// NormalizeTitle lowercases, replaces anything but letters and digits with a
// space and collapses whitespace.
func NormalizeTitle(title string) string {
	lowered := strings.ToLower(title)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// contentFingerprint hashes the compacted normalized title. ok is false when
// nothing is left after normalization.
func contentFingerprint(title string) (string, bool) {
	compact := strings.ReplaceAll(NormalizeTitle(title), " ", "")
	if compact == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(compact))
	return hex.EncodeToString(sum[:])[:fingerprintLength], true
}

// ExtractKeywords returns space-delimited tokens of the normalized title, or
// overlapping bigrams of the compacted title when no token is long enough.
func ExtractKeywords(title string, opts KeywordOptions) []string {
	opts = opts.withDefaults()
	normalized := NormalizeTitle(title)

	var tokens []string
	for _, token := range strings.Split(normalized, " ") {
		if utf8.RuneCountInString(token) >= opts.MinTokenRunes {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) > 0 {
		return uniqueLimit(tokens, opts.MaxPerTitle)
	}

	compact := []rune(strings.ReplaceAll(normalized, " ", ""))
	limit := min(len(compact)-1, opts.BigramWindow)
	grams := make([]string, 0, max(limit, 0))
	for i := 0; i < limit; i++ {
		grams = append(grams, string(compact[i:i+2]))
	}
	return uniqueLimit(grams, opts.MaxPerTitle)
}

func uniqueLimit(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, min(len(values), limit))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
