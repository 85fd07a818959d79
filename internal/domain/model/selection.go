package model

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownAction is returned when an action name is not recognized.
var ErrUnknownAction = errors.New("unknown review action")

// Action is the bulk operation applied to every selected pull request.
type Action string

const (
	ActionNone            Action = "none"
	ActionComment         Action = "comment"
	ActionApprove         Action = "approve"
	ActionMerge           Action = "merge"
	ActionApproveAndMerge Action = "approve_and_merge"
)

// ParseAction converts a user-supplied action name. The empty string maps to
// ActionNone.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case "", ActionNone:
		return ActionNone, nil
	case ActionComment, ActionApprove, ActionMerge, ActionApproveAndMerge:
		return a, nil
	default:
		return ActionNone, fmt.Errorf("%w %q", ErrUnknownAction, s)
	}
}

// Merges reports whether the action attempts a merge.
func (a Action) Merges() bool {
	return a == ActionMerge || a == ActionApproveAndMerge
}

// ReviewSelection is one user submission: which pull requests were ticked,
// the comment text, and the action to apply. It is built per submission and
// discarded after processing.
type ReviewSelection struct {
	Selected map[PRHandle]bool
	Comment  string
	Action   Action
}

// SelectedHandles returns the handles whose flag is true, sorted by
// repository and number.
func (s ReviewSelection) SelectedHandles() []PRHandle {
	handles := make([]PRHandle, 0, len(s.Selected))
	for h, selected := range s.Selected {
		if selected {
			handles = append(handles, h)
		}
	}
	slices.SortFunc(handles, ComparePRHandles)
	return handles
}

// ComparePRHandles orders handles by repository name, then number.
func ComparePRHandles(a, b PRHandle) int {
	return cmp.Or(
		cmp.Compare(a.RepoFullName, b.RepoFullName),
		cmp.Compare(a.Number, b.Number),
	)
}

// SelectAll builds a selection map that ticks every pull request in prs.
func SelectAll(prs []EnrichedPullRequest) map[PRHandle]bool {
	selected := make(map[PRHandle]bool, len(prs))
	for _, pr := range prs {
		selected[pr.Handle()] = true
	}
	return selected
}

// ReviewOutcome is the result of applying an action to one selected pull
// request. Subject is the pull request the message is about (zero when the
// outcome concerns the whole submission). Applied is true when the action
// took effect, which corresponds to returning the handle rather than none.
// Mutated is true whenever a remote write landed, even if a later step of the
// same action failed, so the pull request must be refetched.
type ReviewOutcome struct {
	Subject  PRHandle
	Applied  bool
	Mutated  bool
	Severity Severity
	Message  string
}

// Handle returns the subject and true when the action was applied, or the
// zero handle and false otherwise.
func (o ReviewOutcome) Handle() (PRHandle, bool) {
	if !o.Applied {
		return PRHandle{}, false
	}
	return o.Subject, true
}
