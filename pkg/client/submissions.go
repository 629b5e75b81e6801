package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/survey-api/pkg/survey"
)

// SubmissionsService drives the respondent flow.
type SubmissionsService struct {
	client *Client
}

func submissionPath(id string) string {
	return "/submissions/" + url.PathEscape(id)
}

// Start opens a draft submission. email is optional.
func (s *SubmissionsService) Start(ctx context.Context, formID string, respondent survey.RespondentType, email string) (*Submission, error) {
	body := map[string]interface{}{"respondentType": respondent}
	if email != "" {
		body["email"] = email
	}
	var out Submission
	if err := s.client.do(ctx, http.MethodPost, formPath(formID)+"/submissions", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a submission with its answers.
func (s *SubmissionsService) Get(ctx context.Context, id string) (*Submission, error) {
	var out Submission
	if err := s.client.do(ctx, http.MethodGet, submissionPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns a page of a form's submissions. opts.Status filters by
// DRAFT or SUBMITTED.
func (s *SubmissionsService) List(ctx context.Context, formID string, opts ListOptions) (*Page[Submission], error) {
	var out Page[Submission]
	if err := s.client.do(ctx, http.MethodGet, formPath(formID)+"/submissions", opts.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveChoice stores the selected option ids.
func (s *SubmissionsService) SaveChoice(ctx context.Context, id, questionID string, optionIDs []string) (*Submission, error) {
	if optionIDs == nil {
		optionIDs = []string{}
	}
	return s.answer(ctx, id, "choice", map[string]interface{}{"questionId": questionID, "selectedOptionIds": optionIDs})
}

// SaveTrueFalse stores a boolean answer.
func (s *SubmissionsService) SaveTrueFalse(ctx context.Context, id, questionID string, value bool) (*Submission, error) {
	return s.answer(ctx, id, "true-false", map[string]interface{}{"questionId": questionID, "value": value})
}

// SaveText stores a free text answer.
func (s *SubmissionsService) SaveText(ctx context.Context, id, questionID, text string) (*Submission, error) {
	return s.answer(ctx, id, "text", map[string]interface{}{"questionId": questionID, "text": text})
}

// SaveMatching stores left to right pairings.
func (s *SubmissionsService) SaveMatching(ctx context.Context, id, questionID string, pairs []MatchingPair) (*Submission, error) {
	if pairs == nil {
		pairs = []MatchingPair{}
	}
	return s.answer(ctx, id, "matching", map[string]interface{}{"questionId": questionID, "pairs": pairs})
}

// RemoveAnswer clears the answer to one question.
func (s *SubmissionsService) RemoveAnswer(ctx context.Context, id, questionID string) (*Submission, error) {
	var out Submission
	path := submissionPath(id) + "/answers/" + url.PathEscape(questionID)
	if err := s.client.do(ctx, http.MethodDelete, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit finalises a draft.
func (s *SubmissionsService) Submit(ctx context.Context, id string) (*Submission, error) {
	var out Submission
	if err := s.client.do(ctx, http.MethodPost, submissionPath(id)+"/submit", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a submission.
func (s *SubmissionsService) Delete(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, submissionPath(id), nil, nil, nil)
}

func (s *SubmissionsService) answer(ctx context.Context, id, kind string, body interface{}) (*Submission, error) {
	var out Submission
	if err := s.client.do(ctx, http.MethodPost, submissionPath(id)+"/answers/"+kind, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
