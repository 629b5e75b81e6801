package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Config controls which browser origins may call the API.
type Config struct {
	// AllowedOrigins may use credentials on every route. Empty allows any
	// origin without credentials.
	AllowedOrigins []string
	// PublicPrefixes and PublicSuffixes mark respondent paths open to any
	// origin without credentials.
	PublicPrefixes []string
	PublicSuffixes []string
}

const (
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	exposeHeaders = "Content-Disposition, X-Request-ID"
)

// New returns the CORS middleware.
func New(cfg Config) gin.HandlerFunc {
	originSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			originSet[origin] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := strings.TrimRight(c.GetHeader("Origin"), "/")
		_, trusted := originSet[origin]
		switch {
		case origin != "" && trusted:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		case len(originSet) == 0 || cfg.isPublic(c.Request.URL.Path):
			h.Set("Access-Control-Allow-Origin", "*")
		}

		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Expose-Headers", exposeHeaders)
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (cfg Config) isPublic(path string) bool {
	for _, p := range cfg.PublicPrefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, s := range cfg.PublicSuffixes {
		if s != "" && strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}
