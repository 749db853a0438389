package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"strategyhub/internal/repository"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
)

// RequireUser resolves the bearer access token to an active user.
func RequireUser(j JWT, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			abort(c, "missing bearer token")
			return
		}
		claims, err := j.VerifyType(tok, TokenTypeAccess)
		if err != nil {
			abort(c, "could not validate credentials")
			return
		}
		user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
			return
		}
		if user == nil || !user.IsActive || user.Username != claims.Subject {
			abort(c, "could not validate credentials")
			return
		}
		c.Set(ctxUserID, user.ID)
		c.Set(ctxUsername, user.Username)
		c.Next()
	}
}

// CurrentUser returns the identity stored by RequireUser.
func CurrentUser(c *gin.Context) (uint64, string, bool) {
	id, ok := c.Get(ctxUserID)
	if !ok {
		return 0, "", false
	}
	uid, ok := id.(uint64)
	if !ok {
		return 0, "", false
	}
	return uid, c.GetString(ctxUsername), true
}

func abort(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": msg})
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
