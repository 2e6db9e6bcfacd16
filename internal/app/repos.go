package app

import (
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/repos"
)

type Repos struct {
	User        repos.UserRepo
	LoginToken  repos.LoginTokenRepo
	UserEvent   repos.UserEventRepo
	Class       repos.ClassRepo
	Subclass    repos.SubclassRepo
	Treatment   repos.TreatmentRepo
	Reference   repos.ReferenceRepo
	FormulaMass repos.FormulaMassRepo
	Compound    repos.CompoundRepo
	UploadJob   repos.UploadJobRepo
	Admin       repos.AdminRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:        repos.NewUserRepo(db, log),
		LoginToken:  repos.NewLoginTokenRepo(db, log),
		UserEvent:   repos.NewUserEventRepo(db, log),
		Class:       repos.NewClassRepo(db, log),
		Subclass:    repos.NewSubclassRepo(db, log),
		Treatment:   repos.NewTreatmentRepo(db, log),
		Reference:   repos.NewReferenceRepo(db, log),
		FormulaMass: repos.NewFormulaMassRepo(db, log),
		Compound:    repos.NewCompoundRepo(db, log),
		UploadJob:   repos.NewUploadJobRepo(db, log),
		Admin:       repos.NewAdminRepo(db, log),
	}
}
