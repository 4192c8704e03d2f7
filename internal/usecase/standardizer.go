package usecase

import (
	"sort"
	"strings"

	"github.com/iho/journalbot/internal/domain"
	"github.com/iho/journalbot/internal/rulestore"
)

// compoundIndicators flag descriptions that need a multi-line entry:
// tax-inclusive amounts, payroll withholding, accruals, receivables and
// payables.
var compoundIndicators = []string{
	"含税", "增值税", "进项税", "销项税",
	"工资", "社保", "公积金", "个税",
	"折旧", "摊销", "计提", "预提",
	"预付", "预收", "应收", "应付",
}

// Standardize maps a free-text business description onto the canonical
// category taxonomy using the rule vocabulary. It is deterministic for a
// given snapshot and never fails: no match degrades confidence to 0 and
// the category to "other".
func Standardize(description string, snap *rulestore.Snapshot) domain.StandardizedBusiness {
	matched := snap.MatchKeywords(description)
	if len(matched) == 0 {
		return domain.StandardizedBusiness{
			Category: domain.CategoryOther,
			Compound: isCompound(description),
		}
	}

	matchedSet := make(map[string]bool, len(matched))
	for _, kw := range matched {
		matchedSet[kw] = true
	}

	// Score each category by the IDF weight of its matched keywords,
	// normalized by the maximum weight its vocabulary could reach.
	type catScore struct {
		cat      domain.Category
		score    float64
		max      float64
		specific int // total keyword count of the category's matching rules
	}

	var scores []catScore

	for _, cat := range domain.Categories {
		vocab := snap.CategoryVocabulary(cat)
		if len(vocab) == 0 {
			continue
		}

		var score, max float64
		for _, kw := range vocab {
			max += snap.IDF(kw)
			if matchedSet[kw] {
				score += snap.IDF(kw)
			}
		}

		if score == 0 {
			continue
		}

		scores = append(scores, catScore{
			cat:      cat,
			score:    score,
			max:      max,
			specific: matchingRuleKeywordCount(snap, cat, matchedSet),
		})
	}

	if len(scores) == 0 {
		return domain.StandardizedBusiness{
			Category: domain.CategoryOther,
			Compound: isCompound(description),
		}
	}

	// Highest weighted score wins; ties prefer the category whose
	// matching rules carry fewer keywords (specific over generic), then
	// lexicographic category for a total order.
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		if scores[i].specific != scores[j].specific {
			return scores[i].specific < scores[j].specific
		}
		return scores[i].cat < scores[j].cat
	})

	winner := scores[0]

	// Keep only the winner's keywords, highest weight first.
	keywords := categoryMatches(snap, winner.cat, matchedSet)

	return domain.StandardizedBusiness{
		Category:   winner.cat,
		Keywords:   keywords,
		Confidence: winner.score / winner.max,
		Compound:   isCompound(description),
	}
}

func matchingRuleKeywordCount(snap *rulestore.Snapshot, cat domain.Category, matched map[string]bool) int {
	total := 0

	for _, rule := range snap.Rules() {
		if rule.Category != cat {
			continue
		}

		hit := false
		for _, kw := range rule.Keywords {
			if matched[rulestore.NormalizeKeyword(kw)] {
				hit = true
				break
			}
		}

		if hit {
			total += len(rule.Keywords)
		}
	}

	return total
}

func categoryMatches(snap *rulestore.Snapshot, cat domain.Category, matched map[string]bool) []string {
	var keywords []string

	for _, kw := range snap.CategoryVocabulary(cat) {
		if matched[kw] {
			keywords = append(keywords, kw)
		}
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		wi, wj := snap.IDF(keywords[i]), snap.IDF(keywords[j])
		if wi != wj {
			return wi > wj
		}
		return keywords[i] < keywords[j]
	})

	return keywords
}

func isCompound(description string) bool {
	normalized := rulestore.NormalizeKeyword(description)

	for _, indicator := range compoundIndicators {
		if strings.Contains(normalized, indicator) {
			return true
		}
	}

	return false
}
