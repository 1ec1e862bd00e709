package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/osusuapp/osusu-backend/internal/services"
)

type MemberHandler struct {
	membershipService services.MembershipService
}

func NewMemberHandler(membershipService services.MembershipService) *MemberHandler {
	return &MemberHandler{membershipService: membershipService}
}

func (mh *MemberHandler) memberAction(c *gin.Context, do func(circleID, memberUserID, actorID uuid.UUID) error) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	memberUserID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	if err := do(circleID, memberUserID, actorID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (mh *MemberHandler) List(c *gin.Context) {
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	members, err := mh.membershipService.ListMembers(c.Request.Context(), circleID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (mh *MemberHandler) Approve(c *gin.Context) {
	mh.memberAction(c, func(circleID, memberUserID, actorID uuid.UUID) error {
		return mh.membershipService.Approve(c.Request.Context(), circleID, memberUserID, actorID)
	})
}

func (mh *MemberHandler) Reject(c *gin.Context) {
	mh.memberAction(c, func(circleID, memberUserID, actorID uuid.UUID) error {
		return mh.membershipService.Reject(c.Request.Context(), circleID, memberUserID, actorID)
	})
}

func (mh *MemberHandler) Remove(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	mh.memberAction(c, func(circleID, memberUserID, actorID uuid.UUID) error {
		return mh.membershipService.Remove(c.Request.Context(), circleID, memberUserID, actorID, body.Reason)
	})
}

// MarkPaid is the member's own attestation; no :userId in the path.
func (mh *MemberHandler) MarkPaid(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := mh.membershipService.MarkPaid(c.Request.Context(), circleID, userID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (mh *MemberHandler) MarkUnpaid(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	mh.memberAction(c, func(circleID, memberUserID, actorID uuid.UUID) error {
		return mh.membershipService.MarkUnpaid(c.Request.Context(), circleID, memberUserID, actorID, body.Reason)
	})
}

func (mh *MemberHandler) ConfirmReceipt(c *gin.Context) {
	mh.memberAction(c, func(circleID, memberUserID, actorID uuid.UUID) error {
		return mh.membershipService.ConfirmReceipt(c.Request.Context(), circleID, memberUserID, actorID)
	})
}

func (mh *MemberHandler) Finalize(c *gin.Context) {
	mh.memberAction(c, func(circleID, memberUserID, actorID uuid.UUID) error {
		return mh.membershipService.Finalize(c.Request.Context(), circleID, memberUserID, actorID)
	})
}

func (mh *MemberHandler) FlagOverdue(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	flagged, err := mh.membershipService.FlagOverdue(c.Request.Context(), circleID, actorID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flagged": flagged})
}
