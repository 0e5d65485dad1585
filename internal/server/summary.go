package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tenantdesk/internal/summary"
)

// Summary reports counts and amounts of kind for ?year= (default: the
// current year) and the optional ?month=.
func (s *Server) Summary(kind summary.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req summary.Request
		if err := bindQuery(c, &req); err != nil {
			AbortWithError(c, err)
			return
		}
		if strings.TrimSpace(c.Query("year")) == "" {
			req.Year = s.clock.Now().Year()
		}

		result, err := s.summary.Summarize(c.Request.Context(), kind, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, result, string(kind)+" summary retrieved successfully")
	}
}
