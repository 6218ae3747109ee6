package risk

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// HighRiskTerms always block a draft: gambling, pornography, drugs, violence,
// terrorism, fraud and hate.
var HighRiskTerms = []string{
	"赌博", "色情", "毒品", "暴力", "恐怖", "诈骗", "仇恨",
	"gambling", "pornography", "drug trafficking", "terrorism", "hate speech",
}

// MediumRiskTerms flag insider info, rumors and pseudo-science remedies.
var MediumRiskTerms = []string{
	"内幕", "爆料", "传闻", "谣言", "玄学", "偏方",
	"insider info", "unverified rumor", "miracle cure",
}

// TitleRiskTerms penalize opportunity scores when they appear in a cluster title.
var TitleRiskTerms = []string{
	"博彩", "赌博", "色情", "暴力", "违法", "谣言", "假新闻", "恐怖", "毒品", "诈骗",
}

// TermSet matches a fixed dictionary against text in one pass.
type TermSet struct {
	terms   []string
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
}

// NewTermSet builds a case-folded dictionary matcher.
func NewTermSet(terms []string) *TermSet {
	folded := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			folded = append(folded, t)
		}
	}
	set := &TermSet{terms: folded}
	if len(folded) > 0 {
		set.matcher = ahocorasick.NewStringMatcher(folded)
	}
	return set
}

// Hits returns the distinct dictionary terms found in text.
func (s *TermSet) Hits(text string) []string {
	if s == nil || s.matcher == nil {
		return nil
	}

	// the matcher keeps per-call state
	s.mu.Lock()
	indexes := s.matcher.Match([]byte(strings.ToLower(text)))
	s.mu.Unlock()

	seen := make(map[int]struct{}, len(indexes))
	hits := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(s.terms) {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		hits = append(hits, s.terms[idx])
	}
	return hits
}

// Count returns the number of distinct terms found in text.
func (s *TermSet) Count(text string) int {
	return len(s.Hits(text))
}

// Any reports whether text contains at least one term.
func (s *TermSet) Any(text string) bool {
	return s.Count(text) > 0
}
