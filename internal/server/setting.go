package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) ListSettings(c *gin.Context) {
	items, err := s.settings.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, items, "settings retrieved successfully")
}

func (s *Server) GetSetting(c *gin.Context) {
	item, err := s.settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, item, "setting retrieved successfully")
}

// UpdateSetting upserts {"value": ...} under the path key.
func (s *Server) UpdateSetting(c *gin.Context) {
	payload, err := decodePayload(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	key := c.Param("key")
	item, err := s.settings.Upsert(c.Request.Context(), key, payload["value"])
	if err != nil {
		AbortWithError(c, err)
		return
	}

	recordAudit(c, s.audit, "setting.updated", "setting", key, nil)
	respondOK(c, item, "setting updated successfully")
}
