package httpapi

import "github.com/gin-gonic/gin"

// ErrorResponse is the standard error body every handler in this package
// returns on failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func sendError(c *gin.Context, statusCode int, errorMsg, details string) {
	resp := ErrorResponse{Error: errorMsg}
	if details != "" {
		resp.Details = details
	}
	c.JSON(statusCode, resp)
}

func sendBadRequest(c *gin.Context, details string) {
	sendError(c, 400, "bad request", details)
}

func sendNotFound(c *gin.Context, details string) {
	sendError(c, 404, "not found", details)
}

func sendConflict(c *gin.Context, details string) {
	sendError(c, 409, "already resolved", details)
}

func sendGone(c *gin.Context, details string) {
	sendError(c, 410, "expired", details)
}

func sendInternalError(c *gin.Context, details string) {
	sendError(c, 500, "internal server error", details)
}
