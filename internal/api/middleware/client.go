package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// APIClientHeader marks programmatic clients; they get tokens and JSON.
const APIClientHeader = "X-API-Client"

// WantsJSON 判断客户端类型：AJAX、API 客户端或 Accept 含 json
func WantsJSON(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if c.GetHeader(APIClientHeader) != "" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "json")
}

// IsAPIClient reports whether the caller asked for token-based auth.
func IsAPIClient(c *gin.Context) bool {
	return c.GetHeader(APIClientHeader) != ""
}
