package response

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return c, rec
}

func TestPagedEnvelope(t *testing.T) {
	c, rec := testContext()
	Paged(c, []string{"a", "b"}, &models.Pagination{Page: 2, PageSize: 2, TotalCount: 5})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body struct {
		Data Page                   `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Data.Total)
	assert.Equal(t, 2, body.Data.Page)
	assert.Nil(t, body.Meta)
}

func TestErrorHidesCause(t *testing.T) {
	c, rec := testContext()
	Error(c, errors.New("pq: connection reset"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Contains(t, rec.Body.String(), appErrors.ErrInternal.Code)
	require.Len(t, c.Errors, 1)
	assert.Contains(t, c.Errors.String(), "connection reset")
}

func TestErrorKeepsDomainStatus(t *testing.T) {
	c, rec := testContext()
	Error(c, appErrors.Clone(appErrors.ErrPolicyViolation, "response limit reached"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "response limit reached")
	assert.Empty(t, c.Errors)
}

func TestAttachmentEncodesNonASCII(t *testing.T) {
	assert.Equal(t, `attachment; filename=report.csv`, Attachment("report.csv"))
	assert.Equal(t, "attachment", Attachment(""))

	_, params, err := mime.ParseMediaType(Attachment("Encuesta_Año.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "Encuesta_Año.pdf", params["filename"])
}
