package app

import (
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/repos"
)

type Repos struct {
	User        repos.UserRepo
	Circle      repos.CircleRepo
	Member      repos.MemberRepo
	LedgerEntry repos.LedgerEntryRepo
	CircleEvent repos.CircleEventRepo
	ScoreJob    repos.ScoreJobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		Circle:      repos.NewCircleRepo(db, log),
		Member:      repos.NewMemberRepo(db, log),
		LedgerEntry: repos.NewLedgerEntryRepo(db, log),
		CircleEvent: repos.NewCircleEventRepo(db, log),
		ScoreJob:    repos.NewScoreJobRepo(db, log),
	}
}
