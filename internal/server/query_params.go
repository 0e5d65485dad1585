package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
)

func parseIDParam(c *gin.Context) (snowflake.ID, error) {
	id, err := resource.ParseID(c.Param("id"))
	if err != nil {
		return 0, validation.New("id", "invalid_id", "id is not a valid identifier")
	}
	return id, nil
}

// decodePayload reads a partial update body. Numbers keep their textual
// form so decimals and identifiers survive unchanged.
func decodePayload(c *gin.Context) (map[string]any, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, invalidRequestError("request body could not be read")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, invalidRequestError("request body is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return nil, invalidRequestError("request body must be a JSON object")
	}
	return payload, nil
}

func bindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return invalidRequestError(bindMessage(err))
	}
	return nil
}

func bindQuery(c *gin.Context, out any) error {
	if err := c.ShouldBindQuery(out); err != nil {
		return invalidRequestError(bindMessage(err))
	}
	return nil
}

func bindMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field + " has the wrong type"
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" || msg == "EOF" {
		return "request body is empty"
	}
	return "malformed request"
}
