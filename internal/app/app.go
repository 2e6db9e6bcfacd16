package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/db"
	"github.com/ambralab/tpdb-backend/internal/handlers"
	"github.com/ambralab/tpdb-backend/internal/middleware"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/platform/media"
	"github.com/ambralab/tpdb-backend/internal/platform/molrender"
	"github.com/ambralab/tpdb-backend/internal/server"
)

// App wires the whole backend: database, repos, services, HTTP router. The
// CLI commands reuse the same bootstrap without starting the router.
type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Media    *media.Store
	Router   *gin.Engine
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	dbService, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	mediaStore := media.NewStore(log)
	if err := mediaStore.EnsureDirs(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("prepare media dirs: %w", err)
	}
	renderer := molrender.New(log)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, mediaStore, renderer)

	authMiddleware := middleware.NewAuthMiddleware(log, serviceset.Auth)
	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:       cfg.AllowOrigins,
		MediaRoot:          mediaStore.Root(),
		AuthHandler:        handlers.NewAuthHandler(serviceset.Auth),
		AuthMiddleware:     authMiddleware,
		CompoundHandler:    handlers.NewCompoundHandler(serviceset.Compound),
		UploadHandler:      handlers.NewUploadHandler(serviceset.Upload),
		HealthcheckHandler: handlers.NewHealthcheckHandler(),
	})

	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Media:    mediaStore,
		Router:   router,
	}, nil
}
