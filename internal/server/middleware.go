package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ledgerly/internal/config"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
)

const orgHeader = "X-Org-ID"

// OrgMiddleware resolves the tenant for the request: the X-Org-ID header
// when present, otherwise the DEFAULT_ORG fallback for single-tenant
// installs. Requests that resolve to no org are rejected before any
// handler runs.
func OrgMiddleware(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(orgHeader))

		var orgID int64
		if header != "" {
			parsed, err := snowflake.ParseString(header)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: errorPayload{
					Type:    "validation_error",
					Message: "invalid organization header",
				}})
				return
			}
			orgID = parsed.Int64()
		} else {
			orgID = cfg.DefaultOrgID
		}

		if orgID == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: errorPayload{
				Type:    "validation_error",
				Message: "missing organization",
			}})
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func orgIDFromRequest(c *gin.Context) (int64, bool) {
	id, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	return id.Int64(), ok
}
