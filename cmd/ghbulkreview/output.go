package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// severityStyle picks the style outcome lines are rendered with.
func severityStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeveritySuccess:
		return successStyle
	case model.SeverityWarning:
		return warnStyle
	default:
		return infoStyle
	}
}

func severityMarker(s model.Severity) string {
	switch s {
	case model.SeveritySuccess:
		return "✓"
	case model.SeverityWarning:
		return "!"
	default:
		return "·"
	}
}

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✓ "+msg))
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render("! "+msg))
}

func printPullRequests(w io.Writer, prs []model.EnrichedPullRequest, checkCI bool) {
	if len(prs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no pull requests found"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d pull requests", len(prs))))
	for _, pr := range prs {
		fmt.Fprintf(w, "%s  %s %s\n",
			pr.Handle(),
			pr.Title,
			dimStyle.Render("by "+pr.Author),
		)
		fmt.Fprintf(w, "    %s\n", strings.Join(prFlags(pr, checkCI), "  "))
	}
}

// prFlags renders the enrichment flags of one pull request.
func prFlags(pr model.EnrichedPullRequest, checkCI bool) []string {
	var flags []string

	if pr.IsApproved {
		flags = append(flags, successStyle.Render("approved"))
	} else {
		flags = append(flags, dimStyle.Render("not approved"))
	}

	if pr.NeedsRebase {
		flags = append(flags, warnStyle.Render("needs rebase"))
	}

	if checkCI && pr.CIChecked {
		if pr.IsReadyToMerge {
			flags = append(flags, successStyle.Render("CI passing"))
		} else {
			flags = append(flags, warnStyle.Render("CI not ready"))
		}
	}

	if pr.IsMerged {
		flags = append(flags, infoStyle.Render("merged"))
	}

	return flags
}

func printOutcomes(w io.Writer, outcomes []model.ReviewOutcome) {
	if len(outcomes) == 0 {
		fmt.Fprintln(w, dimStyle.Render("nothing to do"))
		return
	}

	applied := 0
	for _, o := range outcomes {
		if o.Applied {
			applied++
		}
		fmt.Fprintln(w, severityStyle(o.Severity).Render(severityMarker(o.Severity)+" "+o.Message))
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d of %d applied", applied, len(outcomes))))
}

func printOutcomeRecords(w io.Writer, records []model.OutcomeRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no outcomes recorded"))
		return
	}

	for _, r := range records {
		fmt.Fprintf(w, "%s %s %s\n",
			dimStyle.Render(r.CreatedAt.Local().Format("2006-01-02 15:04:05")),
			dimStyle.Render(fmt.Sprintf("%-17s", r.Action)),
			severityStyle(r.Severity).Render(r.Message),
		)
	}
}
