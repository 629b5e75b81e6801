package response

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
)

// Envelope is the body of every JSON response: data or error, plus optional
// pagination and free-form meta.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON writes a success envelope.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && len(meta[0]) > 0 {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Page is the list payload returned by collection endpoints.
type Page struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// Paged responds with a {items,total,page,size} payload plus pagination metadata.
func Paged(c *gin.Context, items interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	page := Page{Items: items}
	if pagination != nil {
		page.Total = pagination.TotalCount
		page.Page = pagination.Page
		page.Size = pagination.PageSize
	}
	JSON(c, http.StatusOK, page, pagination, meta...)
}

func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error writes the error envelope. The cause is attached to the gin context
// so the access log can print what the client never sees.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// Attachment is a Content-Disposition value safe for any filename, including
// form titles outside ASCII.
func Attachment(filename string) string {
	if filename == "" {
		return "attachment"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// Binary sends an in-memory file as a download.
func Binary(c *gin.Context, contentType, filename string, data []byte) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", Attachment(filename))
	c.Data(http.StatusOK, contentType, data)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
