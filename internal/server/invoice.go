package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/ledgerly/internal/billing/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
)

func (s *Server) rateLimitInvoices() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		res, allowed := s.invoiceLimiter.Allow(c.Request.Context(), orgID)
		if res != nil {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !allowed {
			if res != nil && res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter/time.Second)+1))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req billingdomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	req := billingdomain.ListInvoiceRequest{
		CustomerID:    strings.TrimSpace(c.Query("customer_id")),
		InvoiceNumber: strings.TrimSpace(c.Query("invoice_number")),
	}
	if from, ok := parseTimeQuery(c, "from"); ok {
		req.From = &from
	}
	if to, ok := parseTimeQuery(c, "to"); ok {
		req.To = &to
	}

	resp, err := s.billingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoice(c *gin.Context) {
	idOrNumber := strings.TrimSpace(c.Param("id"))
	if idOrNumber == "" {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	resp, err := s.billingSvc.Get(c.Request.Context(), idOrNumber)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VoidInvoice(c *gin.Context) {
	idOrNumber := strings.TrimSpace(c.Param("id"))
	if idOrNumber == "" {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	if err := s.billingSvc.Void(c.Request.Context(), idOrNumber); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"voided": idOrNumber}})
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed, true
	}
	return time.Time{}, false
}
