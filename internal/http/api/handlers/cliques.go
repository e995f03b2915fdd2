package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/cliquepay/cliqued/internal/clique"
)

// CliqueHandler handles clique lifecycle endpoints.
type CliqueHandler struct {
	directory *clique.Directory
}

// NewCliqueHandler constructs a CliqueHandler.
func NewCliqueHandler(directory *clique.Directory) *CliqueHandler {
	return &CliqueHandler{directory: directory}
}

// List returns the caller's cliques with members and last transaction.
func (h *CliqueHandler) List(c *gin.Context) {
	userID := UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	summaries, errList := h.directory.ListForUser(c.Request.Context(), userID, c.Query("search"))
	if errList != nil {
		log.WithError(errList).Error("list cliques failed")
		writeDomainError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cliques": summaries})
}

// createCliqueRequest defines the request body for creating a clique.
type createCliqueRequest struct {
	Name string          `json:"name"`
	Fund decimal.Decimal `json:"fund"`
}

// Create allocates a clique with the caller as founding admin.
func (h *CliqueHandler) Create(c *gin.Context) {
	userID := UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body createCliqueRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	created, errCreate := h.directory.Create(c.Request.Context(), body.Name, body.Fund, userID)
	if errCreate != nil {
		log.WithError(errCreate).Error("create clique failed")
		writeDomainError(c, errCreate)
		return
	}

	log.WithField("clique_id", created.ID).WithField("user_id", userID).Info("clique created")
	c.JSON(http.StatusCreated, gin.H{"clique": created})
}

// Get returns a clique with its active members.
func (h *CliqueHandler) Get(c *gin.Context) {
	cliqueID := strings.TrimSpace(c.Param("id"))
	if cliqueID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing clique id"})
		return
	}

	row, errGet := h.directory.Get(c.Request.Context(), cliqueID)
	if errGet != nil {
		writeDomainError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clique": row})
}

// renameCliqueRequest defines the request body for renaming.
type renameCliqueRequest struct {
	Name string `json:"name"`
}

// Rename applies a partial name update.
func (h *CliqueHandler) Rename(c *gin.Context) {
	var body renameCliqueRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	row, errRename := h.directory.Rename(c.Request.Context(), c.Param("id"), body.Name)
	if errRename != nil {
		writeDomainError(c, errRename)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clique": row})
}

// Delete removes a clique and its transaction history.
func (h *CliqueHandler) Delete(c *gin.Context) {
	cliqueID := c.Param("id")
	if errDelete := h.directory.Delete(c.Request.Context(), cliqueID); errDelete != nil {
		writeDomainError(c, errDelete)
		return
	}

	log.WithField("clique_id", cliqueID).Info("clique deleted")
	c.Status(http.StatusNoContent)
}
