package retrieval

import (
	"context"
	"math"
	"sort"

	"github.com/iho/journalbot/internal/domain"
	"github.com/iho/journalbot/internal/rulestore"
)

// LexicalRetriever ranks rules against a description by cosine
// similarity of IDF-weighted keyword vectors over the rule vocabulary.
// It serves as the in-process default when no external similarity
// search is configured.
type LexicalRetriever struct {
	store *rulestore.Store
}

// NewLexicalRetriever creates a retriever backed by the rule store.
func NewLexicalRetriever(store *rulestore.Store) *LexicalRetriever {
	return &LexicalRetriever{store: store}
}

// Retrieve returns up to topK candidates ordered by descending score,
// ties broken by ascending rule id. Rules sharing no keyword with the
// description are omitted; an empty result is a valid outcome.
func (r *LexicalRetriever) Retrieve(ctx context.Context, description string, topK int) ([]domain.RankedRuleCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := r.store.Snapshot()

	matched := snap.MatchKeywords(description)
	if len(matched) == 0 {
		return nil, nil
	}

	var queryNorm float64
	matchedSet := make(map[string]bool, len(matched))
	for _, kw := range matched {
		matchedSet[kw] = true
		queryNorm += snap.IDF(kw) * snap.IDF(kw)
	}
	queryNorm = math.Sqrt(queryNorm)

	var candidates []domain.RankedRuleCandidate

	for _, rule := range snap.Rules() {
		var dot, ruleNorm float64

		for _, kw := range rule.Keywords {
			normalized := rulestore.NormalizeKeyword(kw)
			weight := snap.IDF(normalized)
			ruleNorm += weight * weight

			if matchedSet[normalized] {
				dot += weight * weight
			}
		}

		if dot == 0 || ruleNorm == 0 {
			continue
		}

		candidates = append(candidates, domain.RankedRuleCandidate{
			Rule:  *rule,
			Score: dot / (queryNorm * math.Sqrt(ruleNorm)),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Rule.ID < candidates[j].Rule.ID
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return candidates, nil
}
