// Package opportunity pairs topic clusters with accounts and scores the pairing.
package opportunity

import (
	"strings"

	"TrendPipeline/internal/domain"
)

const (
	baselineCategoryScore = 10
	perMatchCategoryScore = 6
	maxCategoryScore      = 20
)

// Match is the category overlap between one cluster and one account.
type Match struct {
	Matched []string
	Score   float64
	Skip    bool
}

// AccountKeywords returns the distinct lower-cased keywords of every account category.
func AccountKeywords(account domain.Account) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range account.Categories {
		for _, k := range c.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// CategoryMatch compares cluster keywords with account keywords. An account
// without keywords matches everything at the baseline score; otherwise at
// least one substring overlap is required.
func CategoryMatch(clusterKeywords, accountKeywords []string) Match {
	if len(accountKeywords) == 0 {
		return Match{Score: baselineCategoryScore}
	}

	var matched []string
	for _, ck := range clusterKeywords {
		ck = strings.ToLower(ck)
		for _, ak := range accountKeywords {
			if strings.Contains(ck, ak) || strings.Contains(ak, ck) {
				matched = append(matched, ck)
				break
			}
		}
	}

	if len(matched) == 0 {
		return Match{Skip: true}
	}
	return Match{
		Matched: matched,
		Score:   min(maxCategoryScore, float64(len(matched)*perMatchCategoryScore)),
	}
}
