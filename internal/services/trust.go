package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

// trustDeltas is the fold rule: a pure function of the entry-type
// multiset. Types not listed contribute 0, so new entry kinds never break
// old scores.
var trustDeltas = map[types.LedgerEntryType]int{
	types.EntryContributionMarked:    5,
	types.EntryContributionConfirmed: 10,
	types.EntryContributionUnmarked:  -30,
	types.EntryContributionOverdue:   -10,
	types.EntryMemberRemoved:         -100,
}

// FoldScore folds a user's ledger entries into a trust score. Order does
// not matter; the result is clamped to [MinTrustScore, MaxTrustScore].
func FoldScore(entries []*types.LedgerEntry) int {
	score := types.BaseTrustScore
	for _, e := range entries {
		score += trustDeltas[e.Type]
	}
	if score < types.MinTrustScore {
		return types.MinTrustScore
	}
	if score > types.MaxTrustScore {
		return types.MaxTrustScore
	}
	return score
}

// TrustService rederives a user's trust score from their full ledger
// history and writes it back to the user row. Idempotent: the score is a
// pure function of the entries, never of previous recomputations.
type TrustService interface {
	Recompute(ctx context.Context, userID uuid.UUID) (int, error)
}

type trustService struct {
	db        *gorm.DB
	log       *logger.Logger
	entryRepo repos.LedgerEntryRepo
	userRepo  repos.UserRepo
}

func NewTrustService(db *gorm.DB, baseLog *logger.Logger, entryRepo repos.LedgerEntryRepo, userRepo repos.UserRepo) TrustService {
	return &trustService{
		db:        db,
		log:       baseLog.With("service", "TrustService"),
		entryRepo: entryRepo,
		userRepo:  userRepo,
	}
}

func (s *trustService) Recompute(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperr.Validation(apperr.CodeInvalidInput, "user id is required")
	}
	entries, err := s.entryRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return 0, apperr.Persistence(err)
	}
	score := FoldScore(entries)
	if err := s.userRepo.UpdateTrustScore(ctx, nil, userID, score); err != nil {
		return 0, apperr.Persistence(err)
	}
	s.log.Debug("Trust score recomputed", "user_id", userID, "score", score, "entries", len(entries))
	return score, nil
}
