package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tenantdesk/pkg/db/pagination"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
)

// Response is the envelope every route answers with.
type Response struct {
	Success    bool                 `json:"success"`
	Result     any                  `json:"result"`
	Message    string               `json:"message"`
	Pagination *pagination.PageInfo `json:"pagination,omitempty"`
	Errors     validation.Errors    `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, result any, message string) {
	c.JSON(status, Response{Success: true, Result: result, Message: message})
}

func respondOK(c *gin.Context, result any, message string) {
	respond(c, http.StatusOK, result, message)
}

func respondPage(c *gin.Context, result any, page pagination.PageInfo, message string) {
	c.JSON(http.StatusOK, Response{Success: true, Result: result, Message: message, Pagination: &page})
}
