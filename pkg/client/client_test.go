package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/permission"
	"github.com/noah-isme/survey-api/pkg/response"
	"github.com/noah-isme/survey-api/pkg/survey"
)

type apiStub struct {
	engine *gin.Engine
	srv    *httptest.Server

	mu     sync.Mutex
	hits   []string
	auth   map[string]string
	bodies map[string]map[string]interface{}
}

func newAPIStub(t *testing.T) *apiStub {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &apiStub{engine: gin.New(), auth: map[string]string{}, bodies: map[string]map[string]interface{}{}}
	s.engine.Use(func(c *gin.Context) {
		key := c.Request.Method + " " + c.Request.URL.Path
		raw, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		s.mu.Lock()
		s.hits = append(s.hits, key)
		s.auth[key] = c.GetHeader("Authorization")
		if len(raw) > 0 {
			var body map[string]interface{}
			_ = json.Unmarshal(raw, &body)
			s.bodies[key] = body
		}
		s.mu.Unlock()
		c.Next()
	})
	s.srv = httptest.NewServer(s.engine)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *apiStub) client(opts ...Option) *Client {
	return New(s.srv.URL+"/api", opts...)
}

func (s *apiStub) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hits...)
}

func signIn(c *Client, user UserInfo) {
	c.Session().Set("token-1", "refresh-1", time.Now().Add(time.Hour), user)
}

func TestBearerOnlyOnAPIPaths(t *testing.T) {
	stub := newAPIStub(t)
	stub.engine.GET("/api/users/:id", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, models.User{ID: c.Param("id")}, nil)
	})
	stub.engine.GET("/v1/users/:id", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, models.User{ID: c.Param("id")}, nil)
	})

	api := stub.client()
	signIn(api, UserInfo{ID: "user-1"})
	user, err := api.Users.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "Bearer token-1", stub.auth["GET /api/users/u-1"])

	legacy := New(stub.srv.URL+"/v1", WithSession(api.Session()))
	_, err = legacy.Users.Get(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Empty(t, stub.auth["GET /v1/users/u-2"])
}

func TestNoBearerWhenSignedOut(t *testing.T) {
	stub := newAPIStub(t)
	stub.engine.GET("/api/public/forms/:code", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, models.PublicForm{ID: "form-1", Window: survey.WindowOpen}, nil)
	})

	form, err := stub.client().Forms.GetPublic(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, survey.WindowOpen, form.Window)
	assert.Empty(t, stub.auth["GET /api/public/forms/abc"])
}

func TestSessionExpiryLogsOut(t *testing.T) {
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	session := NewSession()
	session.now = func() time.Time { return clock }
	session.Set("tok", "ref", clock.Add(time.Minute), UserInfo{ID: "user-1"})

	assert.True(t, session.Authorized())
	assert.Equal(t, "user-1", session.User().ID)

	clock = clock.Add(time.Minute)
	assert.False(t, session.Authorized())
	assert.Empty(t, session.User().ID)
	assert.Empty(t, session.RefreshToken())
	assert.True(t, session.ExpiresAt().IsZero())
}

func TestLoginAndLogout(t *testing.T) {
	stub := newAPIStub(t)
	issued := time.Now().UTC()
	stub.engine.POST("/api/auth/login", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, models.LoginResponse{
			TokenPair: models.TokenPair{
				AccessToken:  "access",
				RefreshToken: "refresh",
				TokenType:    "Bearer",
				ExpiresIn:    3600,
				IssuedAt:     issued,
			},
			User: models.UserInfo{ID: "user-1", Email: "ana@example.com", Role: models.RoleUser},
		}, nil)
	})
	stub.engine.POST("/api/auth/logout", func(c *gin.Context) {
		response.Error(c, appErrors.ErrInternal)
	})

	api := stub.client()
	res, err := api.Auth.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "access", res.AccessToken)
	assert.True(t, api.Session().Authorized())
	assert.Equal(t, "ana@example.com", api.Session().User().Email)
	assert.WithinDuration(t, issued.Add(time.Hour), api.Session().ExpiresAt(), time.Second)
	assert.Equal(t, "ana@example.com", stub.bodies["POST /api/auth/login"]["email"])

	err = api.Auth.Logout(context.Background())
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.Equal(t, "refresh", stub.bodies["POST /api/auth/logout"]["refresh_token"])
	assert.False(t, api.Session().Authorized())
}

func TestAPIErrorDecoding(t *testing.T) {
	stub := newAPIStub(t)
	stub.engine.GET("/api/campaigns/:id", func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "campaign not found"))
	})
	stub.engine.GET("/api/auth/me", func(c *gin.Context) {
		response.Error(c, appErrors.ErrUnauthorized)
	})

	api := stub.client()
	signIn(api, UserInfo{ID: "user-1"})

	_, err := api.Campaigns.Get(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "campaign not found", apiErr.Message)
	assert.True(t, api.Session().Authorized())

	_, err = api.Auth.Me(context.Background())
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.False(t, api.Session().Authorized())
}

func TestNewAPIErrorWithoutEnvelope(t *testing.T) {
	err := newAPIError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), err.Message)
	assert.Contains(t, err.Error(), "502")
}

func TestPagedListUnwrapsEnvelope(t *testing.T) {
	stub := newAPIStub(t)
	var query map[string]string
	stub.engine.GET("/api/campaigns", func(c *gin.Context) {
		query = map[string]string{
			"page": c.Query("page"), "size": c.Query("size"), "search": c.Query("search"),
			"sort_by": c.Query("sort_by"), "sort_order": c.Query("sort_order"),
		}
		items := []models.Campaign{{ID: "c-1", Name: "Q1 Survey"}, {ID: "c-2", Name: "Q2 Survey"}}
		response.Paged(c, items, &models.Pagination{Page: 2, PageSize: 2, TotalCount: 5})
	})

	api := stub.client()
	signIn(api, UserInfo{ID: "user-1"})
	page, err := api.Campaigns.List(context.Background(), ListOptions{Page: 2, Size: 2, Search: "Q", SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "Q2 Survey", page.Items[1].Name)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Size)
	assert.Equal(t, map[string]string{"page": "2", "size": "2", "search": "Q", "sort_by": "name", "sort_order": "asc"}, query)
}

func TestLocalValidationSkipsNetwork(t *testing.T) {
	stub := newAPIStub(t)
	api := stub.client()
	signIn(api, UserInfo{ID: "user-1"})
	ctx := context.Background()
	start := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := api.Campaigns.Create(ctx, NewCampaign{Name: "Q1 Survey", StartDate: &start, EndDate: &end})
	var verr *survey.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "schedule", verr.Field)

	_, err = api.Questions.CreateChoice(ctx, "form-1", "", NewChoice{
		QuestionBase:  QuestionBase{Prompt: "Pick"},
		SelectionMode: survey.SelectionSingle,
		Options:       []OptionInput{{Label: "Only"}},
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "options", verr.Field)

	_, err = api.Forms.Create(ctx, "camp-1", NewForm{Title: "  "})
	require.ErrorAs(t, err, &verr)

	_, err = api.Questions.ReplaceOptions(ctx, "q-1", []OptionInput{{Label: "a"}})
	require.Error(t, err)

	assert.Empty(t, stub.calls())
}

func TestFormCreateAppliesAccessMode(t *testing.T) {
	stub := newAPIStub(t)
	stub.engine.POST("/api/campaigns/:id/forms", func(c *gin.Context) {
		var req NewForm
		assert.NoError(t, c.ShouldBindJSON(&req))
		response.Created(c, models.Form{ID: "form-1", CampaignID: c.Param("id"), Title: req.Title, AccessMode: req.AccessMode, AnonymousMode: req.AnonymousMode})
	})

	api := stub.client()
	signIn(api, UserInfo{ID: "user-1"})
	form, err := api.Forms.Create(context.Background(), "camp-1", NewForm{Title: "Staff", AccessMode: survey.AccessPrivate, AnonymousMode: true})
	require.NoError(t, err)
	assert.False(t, form.AnonymousMode)
	assert.Equal(t, false, stub.bodies["POST /api/campaigns/camp-1/forms"]["anonymousMode"])

	form, err = api.Forms.Create(context.Background(), "camp-1", NewForm{Title: "Service Form", AnonymousMode: true})
	require.NoError(t, err)
	assert.True(t, form.AnonymousMode)
}

func TestQuestionCreateRoutesByType(t *testing.T) {
	stub := newAPIStub(t)
	var sectionID string
	handler := func(kind survey.QuestionType) gin.HandlerFunc {
		return func(c *gin.Context) {
			sectionID = c.Query("sectionId")
			response.Created(c, models.Question{ID: "q-1", FormID: c.Param("id"), Type: kind})
		}
	}
	stub.engine.POST("/api/forms/:id/questions/choice", handler(survey.QuestionChoice))
	stub.engine.POST("/api/forms/:id/questions/true-false", handler(survey.QuestionTrueFalse))
	stub.engine.POST("/api/forms/:id/questions/text", handler(survey.QuestionText))
	stub.engine.POST("/api/forms/:id/questions/matching", handler(survey.QuestionMatching))

	api := stub.client()
	signIn(api, UserInfo{ID: "user-1"})
	ctx := context.Background()

	q, err := api.Questions.CreateTrueFalse(ctx, "form-1", "sec-1", NewTrueFalse{QuestionBase: QuestionBase{Prompt: "Ok?"}})
	require.NoError(t, err)
	assert.Equal(t, survey.QuestionTrueFalse, q.Type)
	assert.Equal(t, "sec-1", sectionID)

	_, err = api.Questions.CreateText(ctx, "form-1", "", NewText{QuestionBase: QuestionBase{Prompt: "Why?"}, TextSettingsRequest: TextSettings{TextMode: survey.TextShort}})
	require.NoError(t, err)
	assert.Empty(t, sectionID)

	_, err = api.Questions.CreateChoice(ctx, "form-1", "", NewChoice{
		QuestionBase:  QuestionBase{Prompt: "How was it?"},
		SelectionMode: survey.SelectionSingle,
		Options:       []OptionInput{{Label: "Good"}, {Label: "Bad"}},
	})
	require.NoError(t, err)

	_, err = api.Questions.CreateMatching(ctx, "form-1", "", NewMatching{
		QuestionBase: QuestionBase{Prompt: "Pair"},
		LeftTexts:    []string{"Cat"},
		RightTexts:   []string{"Meow"},
		KeyPairs:     []survey.KeyPair{{LeftIndex: 0, RightIndex: 0}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /api/forms/form-1/questions/true-false",
		"POST /api/forms/form-1/questions/text",
		"POST /api/forms/form-1/questions/choice",
		"POST /api/forms/form-1/questions/matching",
	}, stub.calls())
}

func TestAccessResolvesAndCachesRole(t *testing.T) {
	stub := newAPIStub(t)
	stub.engine.GET("/api/campaigns/:id", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, models.Campaign{ID: c.Param("id"), CreatedBy: "owner-1"}, nil)
	})
	stub.engine.GET("/api/campaigns/:id/members", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, []models.CampaignMemberDetail{
			{CampaignMember: models.CampaignMember{UserID: "user-1", Role: permission.RoleCreator}},
		}, nil)
	})

	api := stub.client()
	signIn(api, UserInfo{ID: "user-1", Role: models.RoleUser})
	ctx := context.Background()

	role, err := api.Access.Role(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, permission.RoleCreator, role)
	require.NoError(t, api.Access.Require(ctx, "camp-1", permission.Forms, false))
	assert.ErrorIs(t, api.Access.Require(ctx, "camp-1", permission.Forms, true), ErrPermissionDenied)
	assert.Len(t, stub.calls(), 2)

	api.Access.Invalidate("camp-1")
	signIn(api, UserInfo{ID: "owner-1"})
	role, err = api.Access.Role(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, permission.RoleOwner, role)
	assert.Len(t, stub.calls(), 3)

	api.Access.Clear()
	signIn(api, UserInfo{ID: "stranger", Role: models.RoleUser})
	role, err = api.Access.Role(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, permission.RoleNone, role)

	api.Access.Clear()
	signIn(api, UserInfo{ID: "admin-1", Role: models.RoleAdmin})
	role, err = api.Access.Role(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, permission.RoleAdmin, role)
}

func TestAccessCacheFollowsSession(t *testing.T) {
	stub := newAPIStub(t)
	stub.engine.GET("/api/campaigns/:id", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, models.Campaign{ID: c.Param("id"), CreatedBy: "owner-1"}, nil)
	})
	stub.engine.GET("/api/campaigns/:id/members", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, []models.CampaignMemberDetail{}, nil)
	})

	api := stub.client()
	ctx := context.Background()
	signIn(api, UserInfo{ID: "owner-1"})
	role, err := api.Access.Role(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, permission.RoleOwner, role)

	api.Session().Clear()
	role, err = api.Access.Role(ctx, "camp-1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, permission.RoleNone, role)

	signIn(api, UserInfo{ID: "owner-1"})
	clock := time.Now().Add(2 * time.Hour)
	api.Session().now = func() time.Time { return clock }
	_, err = api.Access.Role(ctx, "camp-1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	api.Session().now = time.Now
	signIn(api, UserInfo{ID: "stranger", Role: models.RoleUser})
	role, err = api.Access.Role(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, permission.RoleNone, role)
}

func TestAccessNeedsSession(t *testing.T) {
	api := New("http://127.0.0.1:0/api")
	_, err := api.Access.Role(context.Background(), "camp-1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestMemberProfilesFanOut(t *testing.T) {
	stub := newAPIStub(t)
	stub.engine.GET("/api/campaigns/:id/members", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, []models.CampaignMemberDetail{
			{CampaignMember: models.CampaignMember{UserID: "u-1", Role: permission.RoleAdmin}},
			{CampaignMember: models.CampaignMember{UserID: "u-2", Role: permission.RoleReader}},
		}, nil)
	})
	stub.engine.GET("/api/users/:id", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, models.User{ID: c.Param("id"), FullName: "User " + c.Param("id")}, nil)
	})

	api := stub.client()
	signIn(api, UserInfo{ID: "user-1"})
	users, err := api.Members.Profiles(context.Background(), "camp-1")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u-1", users[0].ID)
	assert.Equal(t, "User u-2", users[1].FullName)
}

func TestMemberProfilesFailWhenAnyFetchFails(t *testing.T) {
	stub := newAPIStub(t)
	stub.engine.GET("/api/campaigns/:id/members", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, []models.CampaignMemberDetail{
			{CampaignMember: models.CampaignMember{UserID: "u-1"}},
			{CampaignMember: models.CampaignMember{UserID: "u-2"}},
		}, nil)
	})
	stub.engine.GET("/api/users/:id", func(c *gin.Context) {
		if c.Param("id") == "u-2" {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.JSON(c, http.StatusOK, models.User{ID: c.Param("id")}, nil)
	})

	api := stub.client()
	signIn(api, UserInfo{ID: "user-1"})
	users, err := api.Members.Profiles(context.Background(), "camp-1")
	assert.Nil(t, users)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestExportDownloadResolvesRelativeURL(t *testing.T) {
	stub := newAPIStub(t)
	stub.engine.GET("/api/exports/:id", func(c *gin.Context) {
		url := "/api/exports/download/tok-1"
		response.JSON(c, http.StatusOK, ExportStatus{ID: c.Param("id"), Status: models.ExportStatusFinished, Progress: 100, ResultURL: &url}, nil)
	})
	stub.engine.GET("/api/exports/download/:token", func(c *gin.Context) {
		response.Binary(c, "text/csv", "report.csv", []byte("a,b\n1,2\n"))
	})

	api := stub.client()
	signIn(api, UserInfo{ID: "user-1"})
	status, err := api.Reports.ExportStatus(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, status.ResultURL)

	data, err := api.Reports.Download(context.Background(), *status.ResultURL)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
	assert.Equal(t, "Bearer token-1", stub.auth["GET /api/exports/download/tok-1"])
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Multiple choice", QuestionTypeLabel(survey.QuestionChoice))
	assert.Equal(t, "True / False", QuestionTypeLabel(survey.QuestionTrueFalse))
	assert.Equal(t, "Restricted", AccessModeLabel(survey.AccessRestricted))
	assert.Equal(t, "Published", FormStatusLabel(survey.FormPublished))
	assert.Equal(t, "Active", CampaignStatusLabel(survey.CampaignActive))
	assert.Equal(t, "Submitted", SubmissionStatusLabel(survey.SubmissionSubmitted))
	assert.Equal(t, "Owner", RoleLabel(permission.RoleOwner))
	assert.Equal(t, "SOMETHING", QuestionTypeLabel("SOMETHING"))
}
