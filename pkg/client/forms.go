package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/noah-isme/survey-api/pkg/survey"
)

// FormsService manages forms and their public links.
type FormsService struct {
	client *Client
}

func formPath(id string) string {
	return "/forms/" + url.PathEscape(id)
}

// Create validates the form locally and creates it under a campaign.
func (s *FormsService) Create(ctx context.Context, campaignID string, in NewForm) (*Form, error) {
	if err := survey.ValidateTitle("title", in.Title, survey.MaxTitleLength); err != nil {
		return nil, err
	}
	if err := survey.ValidateSchedule(in.OpenAt, in.CloseAt); err != nil {
		return nil, err
	}
	if in.ResponseLimitMode != "" {
		if err := survey.ValidateLimitPolicy(in.ResponseLimitMode, in.LimitedN); err != nil {
			return nil, err
		}
	}
	mode := in.AccessMode
	if mode == "" {
		mode = survey.AccessPublic
	}
	in.AnonymousMode = survey.ApplyAccessMode(mode, in.AnonymousMode)

	var out Form
	if err := s.client.do(ctx, http.MethodPost, "/campaigns/"+url.PathEscape(campaignID)+"/forms", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the forms of a campaign.
func (s *FormsService) List(ctx context.Context, campaignID string, opts ListOptions) (*Page[Form], error) {
	var out Page[Form]
	if err := s.client.do(ctx, http.MethodGet, "/campaigns/"+url.PathEscape(campaignID)+"/forms", opts.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one form.
func (s *FormsService) Get(ctx context.Context, id string) (*Form, error) {
	var out Form
	if err := s.client.do(ctx, http.MethodGet, formPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTitle renames the form.
func (s *FormsService) UpdateTitle(ctx context.Context, id, title string) (*Form, error) {
	return s.patch(ctx, id, "title", map[string]string{"title": title})
}

// UpdateDescription replaces the description.
func (s *FormsService) UpdateDescription(ctx context.Context, id, description string) (*Form, error) {
	return s.patch(ctx, id, "description", map[string]string{"description": description})
}

// UpdateSchedule replaces the response window.
func (s *FormsService) UpdateSchedule(ctx context.Context, id string, openAt, closeAt *time.Time) (*Form, error) {
	return s.patch(ctx, id, "schedule", map[string]*time.Time{"openAt": openAt, "closeAt": closeAt})
}

// UpdateTheme changes the palette.
func (s *FormsService) UpdateTheme(ctx context.Context, id string, mode survey.ThemeMode, primary string) (*Form, error) {
	return s.patch(ctx, id, "theme", map[string]string{"mode": string(mode), "primaryColor": primary})
}

// UpdateAccessMode changes who may open the form.
func (s *FormsService) UpdateAccessMode(ctx context.Context, id string, mode survey.AccessMode) (*Form, error) {
	return s.patch(ctx, id, "access-mode", map[string]string{"mode": string(mode)})
}

// UpdateLimitPolicy sets the response limit.
func (s *FormsService) UpdateLimitPolicy(ctx context.Context, id string, mode survey.ResponseLimitMode, n *int) (*Form, error) {
	if err := survey.ValidateLimitPolicy(mode, n); err != nil {
		return nil, err
	}
	return s.patch(ctx, id, "limit-policy", map[string]interface{}{"mode": mode, "n": n})
}

// UpdatePresentation replaces the presentation flag bundle.
func (s *FormsService) UpdatePresentation(ctx context.Context, id string, in PresentationSet) (*Form, error) {
	return s.patch(ctx, id, "presentation", in)
}

// SetAnonymous toggles anonymous responses.
func (s *FormsService) SetAnonymous(ctx context.Context, id string, enabled bool) (*Form, error) {
	return s.patch(ctx, id, "anonymous", map[string]bool{"enabled": enabled})
}

// SetAllowEdit toggles editing before submit.
func (s *FormsService) SetAllowEdit(ctx context.Context, id string, enabled bool) (*Form, error) {
	return s.patch(ctx, id, "allow-edit", map[string]bool{"enabled": enabled})
}

// SetAutoSave toggles autosave.
func (s *FormsService) SetAutoSave(ctx context.Context, id string, enabled bool) (*Form, error) {
	return s.patch(ctx, id, "autosave", map[string]bool{"enabled": enabled})
}

// UpdateStatus moves the form through its lifecycle.
func (s *FormsService) UpdateStatus(ctx context.Context, id string, status survey.FormStatus) (*Form, error) {
	return s.patch(ctx, id, "status", map[string]survey.FormStatus{"status": status})
}

// Delete removes the form.
func (s *FormsService) Delete(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, formPath(id), nil, nil, nil)
}

// Publish publishes the form and returns its public code. force regenerates
// an existing code.
func (s *FormsService) Publish(ctx context.Context, id string, force bool) (*PublicLink, error) {
	var query url.Values
	if force {
		query = url.Values{"force": []string{strconv.FormatBool(force)}}
	}
	var out PublicLink
	if err := s.client.do(ctx, http.MethodPost, formPath(id)+"/public-link", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublicLinkQR downloads the PNG QR code of the public link.
func (s *FormsService) PublicLinkQR(ctx context.Context, id string, w io.Writer) error {
	raw, err := s.client.send(ctx, http.MethodGet, formPath(id)+"/public-link/qr", nil, nil)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

// GetPublic resolves a public code without authentication.
func (s *FormsService) GetPublic(ctx context.Context, code string) (*PublicForm, error) {
	var out PublicForm
	if err := s.client.do(ctx, http.MethodGet, "/public/forms/"+url.PathEscape(code), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *FormsService) patch(ctx context.Context, id, field string, body interface{}) (*Form, error) {
	var out Form
	if err := s.client.do(ctx, http.MethodPatch, formPath(id)+"/"+field, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SectionsService manages form sections.
type SectionsService struct {
	client *Client
}

// List returns the sections in order.
func (s *SectionsService) List(ctx context.Context, formID string) ([]Section, error) {
	var out []Section
	if err := s.client.do(ctx, http.MethodGet, formPath(formID)+"/sections", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create appends a section.
func (s *SectionsService) Create(ctx context.Context, formID, title string) (*Section, error) {
	if err := survey.ValidateTitle("title", title, survey.MaxTitleLength); err != nil {
		return nil, err
	}
	var out Section
	if err := s.client.do(ctx, http.MethodPost, formPath(formID)+"/sections", nil, map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rename changes a section title.
func (s *SectionsService) Rename(ctx context.Context, formID, sectionID, title string) (*Section, error) {
	var out Section
	path := formPath(formID) + "/sections/" + url.PathEscape(sectionID) + "/title"
	if err := s.client.do(ctx, http.MethodPatch, path, nil, map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Move places a section at a zero based position and returns the new order.
func (s *SectionsService) Move(ctx context.Context, formID, sectionID string, position int) ([]Section, error) {
	var out []Section
	path := formPath(formID) + "/sections/" + url.PathEscape(sectionID) + "/move/" + strconv.Itoa(position)
	if err := s.client.do(ctx, http.MethodPatch, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a section.
func (s *SectionsService) Delete(ctx context.Context, formID, sectionID string) error {
	return s.client.do(ctx, http.MethodDelete, formPath(formID)+"/sections/"+url.PathEscape(sectionID), nil, nil, nil)
}
