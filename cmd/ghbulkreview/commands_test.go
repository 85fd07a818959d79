package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

func TestParseSelections(t *testing.T) {
	handles, err := parseSelections([]string{"acme/api#1", " acme/web#22 "})

	require.NoError(t, err)
	assert.Equal(t, []model.PRHandle{
		{RepoFullName: "acme/api", Number: 1},
		{RepoFullName: "acme/web", Number: 22},
	}, handles)
}

func TestParseSelections_Invalid(t *testing.T) {
	for _, raw := range []string{"acme/api", "acme#1", "acme/api#x", "acme/api#0"} {
		t.Run(raw, func(t *testing.T) {
			_, err := parseSelections([]string{raw})
			assert.ErrorIs(t, err, model.ErrInvalidHandle)
		})
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "fetch", "review", "token", "outcomes"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestReviewCmd_RejectsUnknownAction(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"review", "--action", "close", "--all"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()

	assert.ErrorIs(t, err, model.ErrUnknownAction)
}

func TestQueryFlags_Apply(t *testing.T) {
	saved := model.Query{OrgName: "acme", Title: "deps", ReviewedBy: "carol", CheckCI: true}

	tests := []struct {
		name string
		args []string
		want model.Query
	}{
		{
			name: "no flags keeps saved query",
			want: saved,
		},
		{
			name: "changed flags replace saved fields",
			args: []string{"--author", "bob", "--review-requested", "me", "--check-ci=false"},
			want: model.Query{OrgName: "acme", Title: "deps", ReviewedBy: "carol", Author: "bob", ReviewRequestedUser: "me"},
		},
		{
			name: "empty flag clears saved field",
			args: []string{"--org", "", "--title="},
			want: model.Query{ReviewedBy: "carol", CheckCI: true},
		},
		{
			name: "now forces a fetch",
			args: []string{"--now", "--reviewed-by", "dave"},
			want: model.Query{OrgName: "acme", Title: "deps", ReviewedBy: "dave", CheckCI: true, FetchNow: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var qf queryFlags
			cmd := &cobra.Command{Use: "fetch"}
			qf.register(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))

			assert.Equal(t, tt.want, qf.apply(cmd.Flags(), saved))
		})
	}
}

func TestReviewCmd_SelectAndAllExclusive(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"review", "--action", "approve", "--all", "--select", "acme/api#1"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestReviewCmd_RejectsInvalidSelection(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"review", "--action", "approve", "--select", "acme/api"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()

	assert.ErrorIs(t, err, model.ErrInvalidHandle)
}

func TestOutcomesCmd_RunAndLimitExclusive(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"outcomes", "--run", "abc", "--limit", "5"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}
