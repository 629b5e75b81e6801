package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(header string) (string, string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return seen, rec.Header().Get(headerKey)
}

func TestMiddlewareKeepsCallerID(t *testing.T) {
	seen, echoed := serve("scenario-run:42")
	assert.Equal(t, "scenario-run:42", seen)
	assert.Equal(t, seen, echoed)
}

func TestMiddlewareReplacesMissingOrUnsafeID(t *testing.T) {
	for _, header := range []string{"", "line\nbreak", strings.Repeat("a", maxLength+1)} {
		seen, echoed := serve(header)
		_, err := uuid.Parse(seen)
		require.NoError(t, err, "header %q", header)
		assert.Equal(t, seen, echoed)
	}
}

func TestValueWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, Value(c))
}
