package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bunny/boardhole/internal/application"
	"github.com/bunny/boardhole/pkg/helpers"
	"github.com/bunny/boardhole/pkg/problem"
)

const principalKey = "principal"

// Auth validates the session cookie and ensures an active session exists in
// Redis. It sets the resolved principal in the Gin context on success and
// aborts with a problem body otherwise.
func Auth(sessions *application.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.SessionCookieName)
		if err != nil || token == "" {
			problem.Abort(c, problem.Unauthorized(c))
			return
		}
		p, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			problem.Abort(c, problem.Unauthorized(c))
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal set by Auth, or nil when
// the request carried no valid session.
func PrincipalFrom(c *gin.Context) *application.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*application.Principal)
	return p
}
