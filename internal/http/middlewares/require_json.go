package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON answers 415 to writes whose body is not JSON. Bodiless writes
// such as logout and refresh pass through.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasBody(c.Request) || isJSON(c.ContentType()) {
			c.Next()
			return
		}
		abort(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json")
	}
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	}
	return false
}

func isJSON(mediaType string) bool {
	mediaType = strings.ToLower(mediaType)
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
