package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mstepanenko/sprintdesk/internal/auth"
	"github.com/mstepanenko/sprintdesk/pkg/errors"
	"github.com/mstepanenko/sprintdesk/pkg/response"
)

const (
	CtxUserIDKey       = "userID"
	CtxCredentialIDKey = "credentialID"
	CtxAccessTokenKey  = "accessToken"
)

// Auth is the engine-wide credential gate. Requests whose path matches one of
// the public prefixes pass through untouched. Everything else must carry a
// bearer access token whose credential record still exists (lookup first,
// crypto check second): a valid signature on a revoked pair is still rejected.
func Auth(credentials *auth.CredentialService, publicPrefixes []string) gin.HandlerFunc {
	prefixes := make([]string, 0, len(publicPrefixes))
	for _, prefix := range publicPrefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrCredentialNotFound)
			c.Abort()
			return
		}
		token := strings.TrimSpace(authz[7:])

		credential, err := credentials.Lookup(token)
		if err != nil {
			response.Error(c, errors.ErrCredentialNotFound)
			c.Abort()
			return
		}

		if _, err := credentials.ValidateAccessToken(token); err != nil {
			response.Error(c, errors.ErrCredentialInvalid)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, credential.UserID)
		c.Set(CtxCredentialIDKey, credential.ID)
		c.Set(CtxAccessTokenKey, token)

		c.Next()
	}
}
