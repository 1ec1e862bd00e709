package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/services"
)

type UserHandler struct {
	userService   services.UserService
	ledgerService services.LedgerService
}

func NewUserHandler(userService services.UserService, ledgerService services.LedgerService) *UserHandler {
	return &UserHandler{userService: userService, ledgerService: ledgerService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.GetMe(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"me": me})
}

// GetMyLedger returns the caller's own ledger history, newest first.
func (uh *UserHandler) GetMyLedger(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	limit := 100
	entries, err := uh.ledgerService.History(c.Request.Context(), repos.HistoryFilter{
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
