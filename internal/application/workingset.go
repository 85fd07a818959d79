package application

import "github.com/ericfisherdev/ghbulkreview/internal/domain/model"

// MergeWorkingSet combines a previous working set with freshly fetched
// entries. Entries are keyed by repository and number: a fresh entry replaces
// the previous one with the same key, previous-only entries are kept
// unchanged, and fresh-only entries are appended. Duplicate keys collapse, so
// the result never holds two entries for the same pull request.
//
// The result keeps the previous order; callers must not depend on it.
func MergeWorkingSet(previous, fresh []model.EnrichedPullRequest) []model.EnrichedPullRequest {
	merged := make([]model.EnrichedPullRequest, 0, len(previous)+len(fresh))
	index := make(map[model.PRHandle]int, len(previous)+len(fresh))

	upsert := func(pr model.EnrichedPullRequest) {
		h := pr.Handle()
		if i, ok := index[h]; ok {
			merged[i] = pr
			return
		}
		index[h] = len(merged)
		merged = append(merged, pr)
	}

	for _, pr := range previous {
		upsert(pr)
	}
	for _, pr := range fresh {
		upsert(pr)
	}

	return merged
}
