package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

const txRetryAttempts = 3

// retryableTxError matches the transient serialization failures the
// backends report; anything else is not worth retrying.
func retryableTxError(err error) bool {
	if err == nil {
		return false
	}
	if apperr.KindOf(err) != apperr.KindPersistence {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// runSerialized executes fn inside a transaction, retrying a bounded
// number of times on serialization conflicts before surfacing Contention.
func runSerialized(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < txRetryAttempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !retryableTxError(err) {
			return err
		}
	}
	return apperr.Contention("transaction kept conflicting, try again")
}

// requireCircleAdmin loads the actor and checks they may exercise admin
// rights over the circle: either they own it or their platform role
// outranks moderator.
func requireCircleAdmin(ctx context.Context, tx *gorm.DB, userRepo repos.UserRepo, circle *types.Circle, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return apperr.Authorization("actor is required")
	}
	if circle.AdminID == actorID {
		return nil
	}
	actor, err := userRepo.GetByID(ctx, tx, actorID)
	if err != nil {
		return apperr.Persistence(err)
	}
	if actor == nil {
		return apperr.Authorization("unknown actor")
	}
	if !types.Permits(actor.Role, types.RoleModerator) {
		return apperr.Authorization("only the circle admin may do this")
	}
	return nil
}
