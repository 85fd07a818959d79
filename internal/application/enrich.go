package application

import (
	"slices"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

// gatingCheckApps are the check-run apps whose conclusions decide merge
// readiness. Runs reported by any other app are ignored.
var gatingCheckApps = []string{"GitHub Actions", "GitHub Code Scanning"}

// passingConclusions are the check-run conclusions that do not block a merge.
var passingConclusions = []string{"success", "skipped", "neutral"}

// IsApproved scans reviews in the order given. A CHANGES_REQUESTED review
// makes the result false immediately, regardless of approvals seen before or
// after it; otherwise the pull request is approved iff at least one review is
// APPROVED.
func IsApproved(reviews []model.Review) bool {
	approved := false
	for _, r := range reviews {
		switch r.State {
		case model.ReviewStateChangesRequested:
			return false
		case model.ReviewStateApproved:
			approved = true
		}
	}
	return approved
}

// IsReadyToMerge reports whether a pull request can be merged as far as CI is
// concerned. It is false when the pull request is not mergeable, or when any
// gating check run has a conclusion outside the passing set. A gating run that
// is still in progress has no conclusion and therefore blocks.
func IsReadyToMerge(mergeable model.MergeableStatus, runs []model.CheckRun) bool {
	if !mergeable.IsMergeable() {
		return false
	}

	for _, run := range runs {
		if !slices.Contains(gatingCheckApps, run.AppName) {
			continue
		}
		if !slices.Contains(passingConclusions, run.Conclusion) {
			return false
		}
	}

	return true
}
