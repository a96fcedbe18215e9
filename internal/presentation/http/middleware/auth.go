package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/user"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/security"
)

const authorKey = "author"

// AuthorMiddleware requires a bearer token issued to an editor or admin and
// stores the author in the gin context.
func AuthorMiddleware(secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		author, err := security.ValidateAuthorToken(token, secret)
		if err != nil {
			logger.Warn("Rejected author token", "path", c.Request.URL.Path, "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if !author.CanEdit() {
			logger.Warn("Author lacks edit role", "authorId", author.ID, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "editor role required"})
			return
		}

		c.Set(authorKey, author)
		c.Next()
	}
}

// GetAuthor returns the author stored by AuthorMiddleware
func GetAuthor(c *gin.Context) (*user.User, bool) {
	v, exists := c.Get(authorKey)
	if !exists {
		return nil, false
	}
	author, ok := v.(*user.User)
	return author, ok
}
