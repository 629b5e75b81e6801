package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(cfg Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(cfg))
	r.GET("/api/forms/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/public/forms/:code", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func call(r *gin.Engine, method, path, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTrustedOriginGetsCredentials(t *testing.T) {
	r := newEngine(Config{AllowedOrigins: []string{"https://admin.example.com/"}, PublicPrefixes: []string{"/api/public/"}})

	rec := call(r, http.MethodGet, "/api/forms/f1", "https://admin.example.com")
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestUnknownOriginBlockedOutsidePublicRoutes(t *testing.T) {
	r := newEngine(Config{AllowedOrigins: []string{"https://admin.example.com"}, PublicPrefixes: []string{"/api/public/"}})

	rec := call(r, http.MethodGet, "/api/forms/f1", "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = call(r, http.MethodGet, "/api/public/forms/abc", "https://blog.example.com")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestPublicSuffixOpensAnonymousStart(t *testing.T) {
	r := newEngine(Config{AllowedOrigins: []string{"https://admin.example.com"}, PublicSuffixes: []string{"/submissions"}})

	rec := call(r, http.MethodOptions, "/api/forms/f1/submissions", "https://blog.example.com")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenConfigNeverSendsCredentialsWithWildcard(t *testing.T) {
	r := newEngine(Config{})

	rec := call(r, http.MethodGet, "/api/forms/f1", "https://anywhere.example.com")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestPreflightShortCircuits(t *testing.T) {
	r := newEngine(Config{AllowedOrigins: []string{"https://admin.example.com"}})

	rec := call(r, http.MethodOptions, "/api/forms/f1", "https://admin.example.com")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
