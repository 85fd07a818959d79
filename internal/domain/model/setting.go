package model

// DefaultSettingSection groups every persisted setting of the tool.
const DefaultSettingSection = "GitHub"

// Setting keys persisted between runs.
const (
	SettingOrgName             = "org_name"
	SettingReviewRequestedUser = "review_requested_user"
	SettingAuthor              = "author"
	SettingTitle               = "title"
	SettingReviewedBy          = "reviewed_by"
	SettingCheckCI             = "check_github_actions"
	SettingCommentText         = "comment_text"
)

// CredentialGitHub is the credential service the GitHub token is stored under.
const CredentialGitHub = "github"
