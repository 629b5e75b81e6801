package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/middleware"
	"github.com/noah-isme/survey-api/internal/service"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/response"
)

// actorFromContext builds the service actor for the request. Requests without
// claims yield an anonymous actor carrying only network metadata.
func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims, ok := middleware.Claims(c); ok {
		actor.UserID = claims.UserID
		actor.Role = claims.Role
	}
	return actor
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// pageParams reads page and size, accepting page_size as an alias of size.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	raw := c.Query("size")
	if raw == "" {
		raw = c.DefaultQuery("page_size", "20")
	}
	size, _ := strconv.Atoi(raw)
	return page, size
}

func boolQuery(c *gin.Context, key string) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && val
}

func optionalQuery(c *gin.Context, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}
