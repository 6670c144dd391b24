package api

import (
	"errors"
	"net/http"

	"musicbox/db"
	"musicbox/utils"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidJSON   = "Invalid JSON format."
	msgInternalError = "Internal server error."
)

// statusFor maps a database error kind to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a {"error": message} body.
// Internal failures are logged in full but reported to the client with a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		utils.GinInternalServerError(c, msgInternalError)
		return
	}

	message := err.Error()
	var dbErr *db.Error
	if errors.As(err, &dbErr) {
		message = dbErr.Message
	}
	switch status {
	case http.StatusBadRequest:
		utils.GinBadRequest(c, message)
	case http.StatusUnauthorized:
		utils.GinUnauthorized(c, message)
	case http.StatusNotFound:
		utils.GinNotFound(c, message)
	case http.StatusConflict:
		utils.GinConflict(c, message)
	default:
		utils.GinError(c, status, message)
	}
}

// actingEmail names the signed-in user for log lines. Routes outside AuthMiddleware get "anonymous".
func actingEmail(c *gin.Context) string {
	identity, ok := utils.CurrentIdentity(c)
	if !ok {
		return "anonymous"
	}
	return identity.Email
}
