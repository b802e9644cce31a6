// Package response defines the JSON envelope every endpoint answers
// with: a data payload, an optional structured error, optional
// pagination, and per-request metadata.
package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the envelope for all API payloads.
type Response struct {
	Data       any         `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody carries a machine-readable code, a display message and
// optional per-field validation detail.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Metadata ties a response back to its request for log correlation.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success writes data in the envelope with the given status.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Response{
		Data:     data,
		Metadata: metadata(c),
	})
}

// SuccessWithPagination writes a list payload plus its page window.
func SuccessWithPagination(c *gin.Context, status int, data any, p *Pagination) {
	c.JSON(status, Response{
		Data:       data,
		Pagination: p,
		Metadata:   metadata(c),
	})
}

// Fail writes an error envelope for the given code.
func Fail(c *gin.Context, status int, code ErrCode) {
	c.JSON(status, Response{
		Error:    &ErrorBody{Code: code, Message: GetMessage(code)},
		Metadata: metadata(c),
	})
}

// FailWithFields writes an error envelope with field-level detail,
// typically from validation.
func FailWithFields(c *gin.Context, status int, code ErrCode, fields map[string]string) {
	c.JSON(status, Response{
		Error:    &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields},
		Metadata: metadata(c),
	})
}

// AbortFail is Fail for middleware: it also stops the handler chain.
func AbortFail(c *gin.Context, status int, code ErrCode) {
	c.AbortWithStatusJSON(status, Response{
		Error:    &ErrorBody{Code: code, Message: GetMessage(code)},
		Metadata: metadata(c),
	})
}

func metadata(c *gin.Context) Metadata {
	id := c.GetString(ContextKeyRequestID)
	if id == "" {
		// Middleware not applied; still give the caller something to quote.
		id = uuid.NewString()
	}
	return Metadata{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
