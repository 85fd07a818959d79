package model

// CheckRun represents an individual CI check run from the GitHub Checks API.
type CheckRun struct {
	ID         int64
	Name       string // Check run name (e.g., "build", "lint").
	AppName    string // Integration that reported the run (e.g., "GitHub Actions").
	Status     string // queued, in_progress, completed, waiting, requested, pending.
	Conclusion string // success, failure, neutral, cancelled, skipped, timed_out, action_required.
	DetailsURL string
}

// MergeableStatus mirrors GitHub's tri-state mergeable field.
type MergeableStatus string

const (
	MergeableMergeable  MergeableStatus = "mergeable"
	MergeableConflicted MergeableStatus = "conflicted"
	MergeableUnknown    MergeableStatus = "unknown" // GitHub has not computed it yet.
)

// IsMergeable reports whether GitHub has confirmed the PR merges cleanly.
// An uncomputed status is not mergeable.
func (s MergeableStatus) IsMergeable() bool {
	return s == MergeableMergeable
}
