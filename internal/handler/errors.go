package handler

import (
	"errors"
	"net/http"

	"github.com/CageChen/codespace/internal/store"
	"github.com/gin-gonic/gin"
)

var errNotAFile = errors.New("not a file")

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNoSuchDirectory):
		return http.StatusNotFound
	case errors.Is(err, store.ErrPathConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func respondStoreError(c *gin.Context, err error) {
	respondError(c, statusFor(err), err.Error())
}
