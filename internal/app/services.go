package app

import (
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/importer"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/platform/media"
	"github.com/ambralab/tpdb-backend/internal/platform/molrender"
	"github.com/ambralab/tpdb-backend/internal/platform/sendgrid"
	"github.com/ambralab/tpdb-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	UserEvent services.UserEventService
	Compound  services.CompoundService
	Molecule  services.MoleculeService
	Upload    services.UploadService
	Importer  importer.Importer
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, mediaStore *media.Store, renderer molrender.Renderer) Services {
	mailer, err := sendgrid.NewFromEnv(log)
	if err != nil {
		log.Warn("SendGrid not configured, login link mail is disabled", "error", err)
		mailer = sendgrid.NewNoop(log)
	}

	userEventService := services.NewUserEventService(db, log, reposet.UserEvent)
	authService := services.NewAuthService(
		db,
		log,
		reposet.User,
		reposet.LoginToken,
		userEventService,
		mailer,
		cfg.JWTSecretKey,
		cfg.AccessTTL,
		cfg.LoginLinkTTL,
		cfg.AppBaseURL,
	)
	compoundService := services.NewCompoundService(db, log, reposet.Compound, reposet.Class, reposet.Subclass, reposet.Treatment)
	moleculeService := services.NewMoleculeService(db, log, reposet.Compound, renderer, mediaStore)

	imp := importer.New(
		db,
		log,
		reposet.Class,
		reposet.Subclass,
		reposet.Treatment,
		reposet.Reference,
		reposet.FormulaMass,
		reposet.Compound,
		reposet.Admin,
		renderer,
		mediaStore,
	)
	uploadService := services.NewUploadService(db, log, reposet.UploadJob, userEventService, imp, mediaStore)

	return Services{
		Auth:      authService,
		UserEvent: userEventService,
		Compound:  compoundService,
		Molecule:  moleculeService,
		Upload:    uploadService,
		Importer:  imp,
	}
}
