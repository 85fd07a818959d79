package model

import "strings"

// baseFilter restricts the issue search to open pull requests in
// non-archived repositories.
const baseFilter = "is:pr is:open archived:false"

// Query is the search specification for one fetch cycle. Every field is
// optional; an empty field leaves that dimension unconstrained. Query is a
// comparable value and is used directly as the fetch cache key.
type Query struct {
	OrgName             string `json:"org_name"`
	ReviewRequestedUser string `json:"review_requested_user"`
	Author              string `json:"author"`
	Title               string `json:"title"`
	ReviewedBy          string `json:"reviewed_by"`
	CheckCI             bool   `json:"check_ci"`
	FetchNow            bool   `json:"fetch_now"`
}

// HasFilters reports whether at least one search constraint is set. A query
// without filters matches every open pull request on GitHub.
func (q Query) HasFilters() bool {
	return q.OrgName != "" ||
		q.ReviewRequestedUser != "" ||
		q.Author != "" ||
		q.Title != "" ||
		q.ReviewedBy != ""
}

// FilterString builds the GitHub issue search string. Qualifiers are appended
// in a fixed order: org, review-requested, reviewed-by, author, in:title.
func (q Query) FilterString() string {
	var b strings.Builder
	b.WriteString(baseFilter)

	appendQualifier := func(prefix, value string) {
		if value == "" {
			return
		}
		b.WriteByte(' ')
		b.WriteString(prefix)
		b.WriteString(value)
	}

	appendQualifier("org:", q.OrgName)
	appendQualifier("review-requested:", q.ReviewRequestedUser)
	appendQualifier("reviewed-by:", q.ReviewedBy)
	appendQualifier("author:", q.Author)
	appendQualifier("in:title ", q.Title)

	return b.String()
}
