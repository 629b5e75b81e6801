package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/survey-api/pkg/survey"
)

// QuestionsService authors form questions.
type QuestionsService struct {
	client *Client
}

func questionPath(id string) string {
	return "/questions/" + url.PathEscape(id)
}

// create posts to the type specific endpoint. sectionID may be empty for an
// unsectioned question.
func (s *QuestionsService) create(ctx context.Context, formID, sectionID string, kind survey.QuestionType, body interface{}) (*Question, error) {
	var query url.Values
	if sectionID != "" {
		query = url.Values{"sectionId": []string{sectionID}}
	}
	var out Question
	path := formPath(formID) + "/questions/" + kind.Endpoint()
	if err := s.client.do(ctx, http.MethodPost, path, query, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateChoice adds a CHOICE question after checking its options.
func (s *QuestionsService) CreateChoice(ctx context.Context, formID, sectionID string, in NewChoice) (*Question, error) {
	labels := make([]string, len(in.Options))
	for i, opt := range in.Options {
		labels[i] = opt.Label
	}
	if err := survey.ValidateChoiceOptions(labels, in.SelectionMode, in.MinSelections, in.MaxSelections); err != nil {
		return nil, err
	}
	return s.create(ctx, formID, sectionID, survey.QuestionChoice, in)
}

// CreateTrueFalse adds a TRUE_FALSE question.
func (s *QuestionsService) CreateTrueFalse(ctx context.Context, formID, sectionID string, in NewTrueFalse) (*Question, error) {
	return s.create(ctx, formID, sectionID, survey.QuestionTrueFalse, in)
}

// CreateText adds a TEXT question.
func (s *QuestionsService) CreateText(ctx context.Context, formID, sectionID string, in NewText) (*Question, error) {
	if err := survey.ValidateTextBounds(in.MinLength, in.MaxLength); err != nil {
		return nil, err
	}
	return s.create(ctx, formID, sectionID, survey.QuestionText, in)
}

// CreateMatching adds a MATCHING question.
func (s *QuestionsService) CreateMatching(ctx context.Context, formID, sectionID string, in NewMatching) (*Question, error) {
	if err := survey.ValidateMatchingKey(in.LeftTexts, in.RightTexts, in.KeyPairs); err != nil {
		return nil, err
	}
	return s.create(ctx, formID, sectionID, survey.QuestionMatching, in)
}

// List returns one page of a form's questions in display order.
func (s *QuestionsService) List(ctx context.Context, formID string, opts ListOptions) (*Page[Question], error) {
	var out Page[Question]
	if err := s.client.do(ctx, http.MethodGet, formPath(formID)+"/questions", opts.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// All pages through every question of a form.
func (s *QuestionsService) All(ctx context.Context, formID string) ([]Question, error) {
	var all []Question
	for page := 1; ; page++ {
		res, err := s.List(ctx, formID, ListOptions{Page: page, Size: 100})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if len(res.Items) == 0 || len(all) >= res.Total {
			return all, nil
		}
	}
}

// Get fetches one question.
func (s *QuestionsService) Get(ctx context.Context, id string) (*Question, error) {
	var out Question
	if err := s.client.do(ctx, http.MethodGet, questionPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePrompt replaces the prompt.
func (s *QuestionsService) UpdatePrompt(ctx context.Context, id, prompt string) (*Question, error) {
	return s.update(ctx, http.MethodPatch, id, "prompt", map[string]string{"prompt": prompt})
}

// UpdateHelpText replaces the help text. nil clears it.
func (s *QuestionsService) UpdateHelpText(ctx context.Context, id string, help *string) (*Question, error) {
	return s.update(ctx, http.MethodPatch, id, "help", map[string]*string{"helpText": help})
}

// SetRequired toggles whether an answer is required.
func (s *QuestionsService) SetRequired(ctx context.Context, id string, required bool) (*Question, error) {
	return s.update(ctx, http.MethodPatch, id, "required", map[string]bool{"enabled": required})
}

// SetShuffle toggles option shuffling.
func (s *QuestionsService) SetShuffle(ctx context.Context, id string, shuffle bool) (*Question, error) {
	return s.update(ctx, http.MethodPatch, id, "shuffle", map[string]bool{"enabled": shuffle})
}

// UpdateBounds sets MULTI selection bounds.
func (s *QuestionsService) UpdateBounds(ctx context.Context, id string, min, max *int) (*Question, error) {
	return s.update(ctx, http.MethodPatch, id, "bounds", map[string]*int{"min": min, "max": max})
}

// UpdateTextSettings configures a TEXT question.
func (s *QuestionsService) UpdateTextSettings(ctx context.Context, id string, in TextSettings) (*Question, error) {
	if err := survey.ValidateTextBounds(in.MinLength, in.MaxLength); err != nil {
		return nil, err
	}
	return s.update(ctx, http.MethodPatch, id, "text-settings", in)
}

// UpdateMatchingKey replaces the MATCHING answer key.
func (s *QuestionsService) UpdateMatchingKey(ctx context.Context, id string, key []survey.KeyPair) (*Question, error) {
	return s.update(ctx, http.MethodPatch, id, "matching-key", map[string][]survey.KeyPair{"key": key})
}

// Move relocates a question. An empty sectionID moves it out of any section.
func (s *QuestionsService) Move(ctx context.Context, id, sectionID string, position int) (*Question, error) {
	body := map[string]interface{}{"newPosition": position, "targetSectionId": nil}
	if sectionID != "" {
		body["targetSectionId"] = sectionID
	}
	return s.update(ctx, http.MethodPatch, id, "move", body)
}

// ReplaceOptions replaces every option of a CHOICE question.
func (s *QuestionsService) ReplaceOptions(ctx context.Context, id string, options []OptionInput) (*Question, error) {
	if len(options) < 2 {
		return nil, &survey.ValidationError{Field: "options", Message: "at least two options are required"}
	}
	return s.update(ctx, http.MethodPut, id, "options", map[string][]OptionInput{"options": options})
}

// Delete removes a question.
func (s *QuestionsService) Delete(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, questionPath(id), nil, nil, nil)
}

func (s *QuestionsService) update(ctx context.Context, method, id, field string, body interface{}) (*Question, error) {
	var out Question
	if err := s.client.do(ctx, method, questionPath(id)+"/"+field, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
