package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bunny/boardhole/pkg/problem"
)

// NoRoute renders a problem body for paths that match nothing in the route
// tree. A dot segment aimed at the API is malformed input, not a missing
// resource, so it gets the validation shape instead of a plain 404.
func NoRoute(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") && hasDotSegment(path) {
		problem.Write(c, problem.Validation(c, map[string]string{"path": "malformed path segment"}))
		return
	}
	problem.Write(c, problem.NotFound(c))
}

func hasDotSegment(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." || seg == "." {
			return true
		}
	}
	return false
}
