package model

import "math/rand"

// QuoteCandidate is the read-only view of a quote the selector works with.
type QuoteCandidate struct {
	ID         string
	Categories []string
	Favorite   bool
}

// SelectQuote picks one quote for the schedule. The pool is first narrowed by
// the schedule's category filter and favorites-only flag; ids in recent are
// then avoided. When the exclusion window swallows the entire narrowed pool
// the pick falls back to ignoring history, so a small catalog still delivers.
// It reports false only when the narrowed pool itself is empty. The selector
// performs no writes; delivery bookkeeping belongs to the caller.
func SelectQuote(s Schedule, pool []QuoteCandidate, recent map[string]struct{}, rng *rand.Rand) (string, bool) {
	filtered := make([]QuoteCandidate, 0, len(pool))
	for _, q := range pool {
		if s.FavoritesOnly && !q.Favorite {
			continue
		}
		if s.Categories != nil && !sharesCategory(q.Categories, s.Categories) {
			continue
		}
		filtered = append(filtered, q)
	}
	if len(filtered) == 0 {
		return "", false
	}

	fresh := make([]QuoteCandidate, 0, len(filtered))
	for _, q := range filtered {
		if _, seen := recent[q.ID]; !seen {
			fresh = append(fresh, q)
		}
	}
	pick := fresh
	if len(pick) == 0 {
		pick = filtered
	}
	return pick[rng.Intn(len(pick))].ID, true
}

func sharesCategory(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
