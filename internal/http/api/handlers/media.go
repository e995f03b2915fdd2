package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cliquepay/cliqued/internal/media"
)

// MediaHandler handles group-scoped media endpoints.
type MediaHandler struct {
	svc     *media.Service
	uploads media.UploadStore
}

// NewMediaHandler constructs a MediaHandler.
func NewMediaHandler(svc *media.Service, uploads media.UploadStore) *MediaHandler {
	return &MediaHandler{svc: svc, uploads: uploads}
}

// List returns all media records for the clique.
func (h *MediaHandler) List(c *gin.Context) {
	rows, errList := h.svc.List(c.Request.Context(), c.Param("id"))
	if errList != nil {
		log.WithError(errList).Error("list media failed")
		writeDomainError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"media": rows})
}

// Upload stores the uploaded file, persists its reference record and
// broadcasts a media-created event on the clique's channel.
func (h *MediaHandler) Upload(c *gin.Context) {
	member := callerMember(c)
	if member == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	fileHeader, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	file, errOpen := fileHeader.Open()
	if errOpen != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	result, errSave := h.uploads.Save(c.Request.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if errSave != nil {
		log.WithError(errSave).Error("store upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store upload failed"})
		return
	}

	row, errIngest := h.svc.Ingest(c.Request.Context(), c.Param("id"), member, result)
	if errIngest != nil {
		log.WithError(errIngest).Error("ingest media failed")
		writeDomainError(c, errIngest)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"media": row})
}
