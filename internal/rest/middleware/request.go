package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/numera/numera/internal/types"
)

// HeaderRequestID is echoed back on every response
const HeaderRequestID = "X-Request-ID"

// HeaderBranchID carries the terminal's branch on requests from the back office
const HeaderBranchID = "X-Branch-ID"

func RequestIDMiddleware(c *gin.Context) {
	// Create a new context from the request context
	ctx := c.Request.Context()

	// Add request ID
	requestID := c.GetHeader(HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)

	if branchID, err := strconv.Atoi(c.GetHeader(HeaderBranchID)); err == nil && branchID > 0 {
		ctx = types.SetBranchID(ctx, branchID)
	}

	// Replace request context
	c.Request = c.Request.WithContext(ctx)

	// Add headers for response
	c.Header(HeaderRequestID, requestID)

	c.Next()
}
