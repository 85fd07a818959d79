package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidHandle is returned when a pull request reference cannot be parsed.
var ErrInvalidHandle = errors.New("invalid pull request handle")

// PRHandle identifies a pull request across repositories. Two handles are
// equal iff they denote the same repository and number, so PRHandle is safe
// to use as a map key.
type PRHandle struct {
	RepoFullName string
	Number       int
}

// String formats the handle as "owner/repo#123".
func (h PRHandle) String() string {
	return fmt.Sprintf("%s#%d", h.RepoFullName, h.Number)
}

// ParsePRHandle parses an "owner/repo#123" reference.
func ParsePRHandle(s string) (PRHandle, error) {
	repo, num, ok := strings.Cut(strings.TrimSpace(s), "#")
	if !ok {
		return PRHandle{}, fmt.Errorf("%w %q: expected owner/repo#number", ErrInvalidHandle, s)
	}

	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return PRHandle{}, fmt.Errorf("%w %q: expected owner/repo#number", ErrInvalidHandle, s)
	}

	number, err := strconv.Atoi(num)
	if err != nil || number <= 0 {
		return PRHandle{}, fmt.Errorf("%w %q: bad number", ErrInvalidHandle, s)
	}

	return PRHandle{RepoFullName: repo, Number: number}, nil
}

// PullRequest is the raw detail of a single pull request as returned by the
// GitHub pull request endpoint.
type PullRequest struct {
	Number       int
	RepoFullName string
	Title        string
	Author       string
	URL          string
	State        string
	HeadSHA      string
	Mergeable    MergeableStatus
	Merged       bool
}

// Handle returns the identity of the pull request.
func (pr PullRequest) Handle() PRHandle {
	return PRHandle{RepoFullName: pr.RepoFullName, Number: pr.Number}
}

// EnrichedPullRequest is a point-in-time snapshot of a pull request together
// with the flags derived from its mergeability, reviews and check runs.
// Values are never mutated after construction; a newer snapshot replaces an
// older one only through a fetch or a refetch-merge.
type EnrichedPullRequest struct {
	Number       int
	RepoFullName string
	Title        string
	Author       string
	URL          string
	HeadSHA      string

	NeedsRebase    bool
	IsApproved     bool
	CIChecked      bool
	IsReadyToMerge bool // Only meaningful when CIChecked.
	IsMerged       bool

	FetchedAt time.Time
}

// Handle returns the identity of the pull request.
func (pr EnrichedPullRequest) Handle() PRHandle {
	return PRHandle{RepoFullName: pr.RepoFullName, Number: pr.Number}
}

// MergeResult is the response of a merge attempt.
type MergeResult struct {
	Merged  bool
	SHA     string
	Message string
}
