package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID is the Gin context key under which the request ID
// is stored for the duration of a request.
const ContextKeyRequestID = "request_id"

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID that is echoed back in the
// response header and in the envelope metadata. An inbound X-Request-ID
// from the client is reused so callers can correlate their own traces.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
