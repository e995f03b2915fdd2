package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cliquepay/cliqued/internal/clique"
	"github.com/cliquepay/cliqued/internal/media"
	"github.com/cliquepay/cliqued/internal/models"
)

// UserID extracts the verified caller id from the gin context.
func UserID(c *gin.Context) string {
	val, exists := c.Get("userID")
	if !exists {
		return ""
	}
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}

// callerMember extracts the member resolved by the role middleware.
func callerMember(c *gin.Context) *models.Member {
	val, exists := c.Get("member")
	if !exists {
		return nil
	}
	member, ok := val.(*models.Member)
	if !ok {
		return nil
	}
	return member
}

// domainStatus maps core errors onto HTTP statuses.
func domainStatus(err error) int {
	switch {
	case errors.Is(err, clique.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, clique.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, clique.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, clique.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrUpload):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes the mapped status with the error message.
func writeDomainError(c *gin.Context, err error) {
	c.JSON(domainStatus(err), gin.H{"error": err.Error()})
}
