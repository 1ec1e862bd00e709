package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/services"
	"github.com/osusuapp/osusu-backend/internal/types"
)

type CircleHandler struct {
	circleService services.CircleService
	joinService   services.JoinService
	roundService  services.RoundService
	payoutService services.PayoutService
	ledgerService services.LedgerService
	eventService  services.EventService
}

func NewCircleHandler(
	circleService services.CircleService,
	joinService services.JoinService,
	roundService services.RoundService,
	payoutService services.PayoutService,
	ledgerService services.LedgerService,
	eventService services.EventService,
) *CircleHandler {
	return &CircleHandler{
		circleService: circleService,
		joinService:   joinService,
		roundService:  roundService,
		payoutService: payoutService,
		ledgerService: ledgerService,
		eventService:  eventService,
	}
}

func (ch *CircleHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var body struct {
		Name       string `json:"name"`
		Amount     int64  `json:"amount"`
		Frequency  string `json:"frequency"`
		MaxMembers int    `json:"max_members"`
		Duration   int    `json:"duration"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	circle, err := ch.circleService.Create(c.Request.Context(), userID, services.CreateCircleInput{
		Name:       body.Name,
		Amount:     body.Amount,
		Frequency:  types.CircleFrequency(body.Frequency),
		MaxMembers: body.MaxMembers,
		Duration:   body.Duration,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"circle": circle})
}

func (ch *CircleHandler) Get(c *gin.Context) {
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	circle, err := ch.circleService.GetByID(c.Request.Context(), circleID)
	if err != nil {
		fail(c, err)
		return
	}
	round, err := ch.roundService.CurrentRound(c.Request.Context(), circleID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"circle": circle, "current_round": round})
}

func (ch *CircleHandler) ListMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	circles, err := ch.circleService.ListMine(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"circles": circles})
}

func (ch *CircleHandler) Join(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Preference string `json:"payout_preference"`
	}
	_ = c.ShouldBindJSON(&body)
	member, existed, err := ch.joinService.Join(c.Request.Context(), circleID, userID, types.PayoutPreference(body.Preference))
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"member": member})
}

func (ch *CircleHandler) statusTransition(c *gin.Context, do func(ctxUserID, circleID uuid.UUID) error) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := do(userID, circleID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ch *CircleHandler) Activate(c *gin.Context) {
	ch.statusTransition(c, func(userID, circleID uuid.UUID) error {
		return ch.circleService.Activate(c.Request.Context(), circleID, userID)
	})
}

func (ch *CircleHandler) Pause(c *gin.Context) {
	ch.statusTransition(c, func(userID, circleID uuid.UUID) error {
		return ch.circleService.Pause(c.Request.Context(), circleID, userID)
	})
}

func (ch *CircleHandler) Resume(c *gin.Context) {
	ch.statusTransition(c, func(userID, circleID uuid.UUID) error {
		return ch.circleService.Resume(c.Request.Context(), circleID, userID)
	})
}

func (ch *CircleHandler) CompleteRound(c *gin.Context) {
	ch.statusTransition(c, func(userID, circleID uuid.UUID) error {
		return ch.roundService.ForceCompleteRound(c.Request.Context(), circleID, userID)
	})
}

// RoundReady lets admins check the preconditions before attempting a
// force-complete, so the rejection is never a surprise.
func (ch *CircleHandler) RoundReady(c *gin.Context) {
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ready, reason, err := ch.roundService.RoundReady(c.Request.Context(), circleID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": ready, "reason": reason})
}

func (ch *CircleHandler) AssignPayoutOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var body struct {
		OrderedUserIDs []string `json:"ordered_user_ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ids := make([]uuid.UUID, 0, len(body.OrderedUserIDs))
	for _, raw := range body.OrderedUserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id in ordering"})
			return
		}
		ids = append(ids, id)
	}
	if err := ch.payoutService.AssignOrder(c.Request.Context(), circleID, ids, userID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ch *CircleHandler) RandomizePayoutOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ordered, err := ch.payoutService.RandomizeOrder(c.Request.Context(), circleID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ordered_user_ids": ordered})
}

func (ch *CircleHandler) GetLedger(c *gin.Context) {
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter := repos.HistoryFilter{CircleID: circleID, Limit: limit}
	if t := c.Query("type"); t != "" {
		filter.Type = types.LedgerEntryType(t)
	}
	entries, err := ch.ledgerService.History(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (ch *CircleHandler) GetEvents(c *gin.Context) {
	circleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := ch.eventService.ListByCircle(c.Request.Context(), circleID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
