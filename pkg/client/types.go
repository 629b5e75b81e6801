package client

import (
	"net/url"
	"strconv"

	"github.com/noah-isme/survey-api/internal/dto"
	"github.com/noah-isme/survey-api/internal/models"
)

// Wire types shared with the API.
type (
	UserInfo         = models.UserInfo
	User             = models.User
	Campaign         = models.Campaign
	Member           = models.CampaignMemberDetail
	Form             = models.Form
	PublicForm       = models.PublicForm
	PublicLink       = models.PublicLink
	Section          = models.Section
	Question         = models.Question
	QuestionOption   = models.QuestionOption
	QuestionSettings = models.QuestionSettings
	MatchingItem     = models.MatchingItem
	MatchingPair     = models.MatchingPair
	Submission       = models.Submission
	Answer           = models.SubmissionAnswer
	FormReport       = models.FormReport
	CampaignReport   = models.CampaignReport
	QuestionReport   = models.QuestionReport
	OptionCount      = models.OptionCount
	PairCount        = models.PairCount
	ExportJob        = dto.ExportJobResponse
	ExportStatus     = dto.ExportStatusResponse
	RoleResponse     = dto.RoleResponse
	NewCampaign      = dto.CreateCampaignRequest
	NewForm          = dto.CreateFormRequest
	NewChoice        = dto.CreateChoiceQuestionRequest
	NewTrueFalse     = dto.CreateTrueFalseQuestionRequest
	NewText          = dto.CreateTextQuestionRequest
	NewMatching      = dto.CreateMatchingQuestionRequest
	OptionInput      = dto.OptionInput
	QuestionBase     = dto.QuestionBase
	TextSettings     = dto.TextSettingsRequest
	PresentationSet  = dto.PresentationRequest
)

// Page is one page of a list endpoint, unwrapped from {items,total,page,size}.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}

// ListOptions are the common list query parameters.
type ListOptions struct {
	Page      int
	Size      int
	Search    string
	Status    string
	SortBy    string
	SortOrder string
	Extra     map[string]string
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Size > 0 {
		q.Set("size", strconv.Itoa(o.Size))
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.SortBy != "" {
		q.Set("sort_by", o.SortBy)
	}
	if o.SortOrder != "" {
		q.Set("sort_order", o.SortOrder)
	}
	for k, v := range o.Extra {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}
