package client

import (
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/survey"
)

var questionTypeLabels = map[survey.QuestionType]string{
	survey.QuestionChoice:    "Multiple choice",
	survey.QuestionTrueFalse: "True / False",
	survey.QuestionText:      "Text",
	survey.QuestionMatching:  "Matching",
}

var accessModeLabels = map[survey.AccessMode]string{
	survey.AccessPublic:     "Public",
	survey.AccessPrivate:    "Private",
	survey.AccessRestricted: "Restricted",
}

var formStatusLabels = map[survey.FormStatus]string{
	survey.FormDraft:     "Draft",
	survey.FormPublished: "Published",
	survey.FormClosed:    "Closed",
	survey.FormArchived:  "Archived",
}

var campaignStatusLabels = map[survey.CampaignStatus]string{
	survey.CampaignDraft:    "Draft",
	survey.CampaignActive:   "Active",
	survey.CampaignClosed:   "Closed",
	survey.CampaignArchived: "Archived",
}

var submissionStatusLabels = map[survey.SubmissionStatus]string{
	survey.SubmissionDraft:     "In progress",
	survey.SubmissionSubmitted: "Submitted",
}

// QuestionTypeLabel returns the display name of a question type.
func QuestionTypeLabel(t survey.QuestionType) string {
	return labelOr(questionTypeLabels[t], string(t))
}

// AccessModeLabel returns the display name of an access mode.
func AccessModeLabel(m survey.AccessMode) string {
	return labelOr(accessModeLabels[m], string(m))
}

// FormStatusLabel returns the display name of a form status.
func FormStatusLabel(s survey.FormStatus) string {
	return labelOr(formStatusLabels[s], string(s))
}

// CampaignStatusLabel returns the display name of a campaign status.
func CampaignStatusLabel(s survey.CampaignStatus) string {
	return labelOr(campaignStatusLabels[s], string(s))
}

// SubmissionStatusLabel returns the display name of a submission status.
func SubmissionStatusLabel(s survey.SubmissionStatus) string {
	return labelOr(submissionStatusLabels[s], string(s))
}

// RoleLabel returns the display name of a campaign role.
func RoleLabel(r permission.Role) string {
	return r.Label()
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
