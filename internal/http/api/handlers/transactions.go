package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/models"
)

// TransactionHandler exposes the read-only transaction history. The
// payment subsystem writes these rows; this server only lists them.
type TransactionHandler struct {
	db *gorm.DB
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{db: db}
}

// List returns the clique's transactions, newest first.
func (h *TransactionHandler) List(c *gin.Context) {
	var rows []models.Transaction
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("clique_id = ?", c.Param("id")).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transactions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}
