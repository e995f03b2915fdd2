package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cliquepay/cliqued/internal/clique"
)

// MemberHandler handles membership endpoints.
type MemberHandler struct {
	membership *clique.Membership
}

// NewMemberHandler constructs a MemberHandler.
func NewMemberHandler(membership *clique.Membership) *MemberHandler {
	return &MemberHandler{membership: membership}
}

// addMembersRequest defines the request body for adding members.
type addMembersRequest struct {
	UserIDs []string `json:"user_ids"`
}

// Add adds or reactivates users as members of the clique. When the batch
// stops early the members already committed are reported alongside the
// error so the caller can account for partial progress.
func (h *MemberHandler) Add(c *gin.Context) {
	var body addMembersRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	added, errAdd := h.membership.AddMembers(c.Request.Context(), c.Param("id"), body.UserIDs)
	if errAdd != nil {
		c.JSON(domainStatus(errAdd), gin.H{
			"error":   errAdd.Error(),
			"members": added,
		})
		return
	}

	log.WithField("clique_id", c.Param("id")).WithField("count", len(added)).Info("members added")
	c.JSON(http.StatusCreated, gin.H{"members": added})
}

// removeMembersRequest defines the request body for removing members.
type removeMembersRequest struct {
	MemberIDs []string `json:"member_ids"`
}

// Remove soft-deletes members of the clique. Idempotent.
func (h *MemberHandler) Remove(c *gin.Context) {
	var body removeMembersRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if errRemove := h.membership.RemoveMembers(c.Request.Context(), c.Param("id"), body.MemberIDs); errRemove != nil {
		writeDomainError(c, errRemove)
		return
	}

	log.WithField("clique_id", c.Param("id")).WithField("count", len(body.MemberIDs)).Info("members removed")
	c.Status(http.StatusNoContent)
}
