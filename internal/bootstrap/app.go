package bootstrap

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/analyses"
	"labreport-backend/internal/indicators"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/patients"
	"labreport-backend/internal/queue"
	"labreport-backend/internal/shared/config"
	"labreport-backend/internal/shared/server"
	"labreport-backend/internal/shared/storage/db"
	"labreport-backend/internal/shared/storage/object"
	localstore "labreport-backend/internal/shared/storage/object/local"
	s3store "labreport-backend/internal/shared/storage/object/s3"
	"labreport-backend/internal/shared/telemetry"
	"labreport-backend/internal/users"
	"labreport-backend/internal/workerproc"
)

// App holds shared dependencies for the api and worker binaries.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	Gemini *llm.Gemini

	AnalysesRepo   analyses.Repo
	PatientsRepo   patients.Repo
	IndicatorsRepo indicators.Repo
	UsersRepo      users.Repo

	AnalysesService   *analyses.Service
	PatientsService   *patients.Service
	UsersService      *users.Service
	AnalysisProcessor workerproc.AnalysisProcessor

	AnalysisHandler  *analyses.Handler
	PatientHandler   *patients.Handler
	IndicatorHandler *indicators.Handler
	UserHandler      *users.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           cfg,
		AnalysisHandler:  app.AnalysisHandler,
		PatientHandler:   app.PatientHandler,
		IndicatorHandler: app.IndicatorHandler,
		UserHandler:      app.UserHandler,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	if app.DB != nil {
		app.AnalysesRepo = &analyses.PGRepo{DB: app.DB}
		app.PatientsRepo = &patients.PGRepo{DB: app.DB}
		app.IndicatorsRepo = &indicators.PGRepo{DB: app.DB}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	} else {
		app.AnalysesRepo = analyses.NewMemoryRepo()
		app.PatientsRepo = patients.NewMemoryRepo()
		app.IndicatorsRepo = indicators.NewMemoryRepo()
		app.UsersRepo = users.NewMemoryRepo()
	}

	app.PatientsService = &patients.Service{Repo: app.PatientsRepo}
	app.UsersService = &users.Service{
		Repo:     app.UsersRepo,
		Analyses: app.AnalysesRepo,
		Mailer:   users.LogMailer{},
	}

	var gateway llm.Client
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.ExtractionModel)
		if err != nil {
			return err
		}
		app.Gemini = gemini
		gateway = gemini
	} else {
		if !isDevLike(cfg.Env) {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
		log.Printf("bootstrap: GEMINI_API_KEY empty; model calls will fail")
		gateway = unconfiguredGateway{}
	}

	normalizer := &indicators.Normalizer{
		Repo:     app.IndicatorsRepo,
		Analyses: app.AnalysesRepo,
		Patients: app.PatientsService,
	}

	analysisSvc := &analyses.Service{
		Repo:       app.AnalysesRepo,
		Store:      app.Store,
		Pipeline:   analyses.NewPipeline(gateway, cfg.ExtractionModel, cfg.InterpretationModel),
		Normalizer: normalizer,
		Patients:   app.PatientsService,
	}

	queueClient, err := buildQueue(ctx, cfg, analysisSvc)
	if err != nil {
		return err
	}
	app.Queue = queueClient
	analysisSvc.Queue = queueClient

	app.AnalysesService = analysisSvc
	app.AnalysisProcessor = analysisSvc

	app.AnalysisHandler = analyses.NewHandler(analysisSvc)
	app.PatientHandler = patients.NewHandler(app.PatientsService)
	app.IndicatorHandler = indicators.NewHandler(app.IndicatorsRepo, app.PatientsService)
	app.UserHandler = users.NewHandler(app.UsersService)
	return nil
}

// buildQueue prefers SQS and falls back to the in-process client in dev so
// the whole flow runs from one binary.
func buildQueue(ctx context.Context, cfg config.Config, processor workerproc.AnalysisProcessor) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) != "" {
		return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
	}
	if !isDevLike(cfg.Env) {
		return nil, fmt.Errorf("LR_SQS_QUEUE_URL is required")
	}

	log.Printf("bootstrap: LR_SQS_QUEUE_URL empty; processing analyses in-process")
	local := queue.NewLocalClient()
	local.SetHandler(func(hctx context.Context, msg queue.Message) {
		payload, err := queue.EncodeMessage(msg)
		if err != nil {
			telemetry.Error("queue.local_encode_failed", map[string]any{"error": err.Error()})
			return
		}
		if err := workerproc.HandleMessage(hctx, processor, string(payload)); err != nil {
			telemetry.Error("queue.local_handle_failed", map[string]any{
				"analysis_id": msg.AnalysisID,
				"error":       err.Error(),
			})
		}
	})
	return local, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// unconfiguredGateway rejects every call. Keeps dev boots without an API key
// from panicking on nil.
type unconfiguredGateway struct{}

func (unconfiguredGateway) Infer(ctx context.Context, req llm.InferRequest) (json.RawMessage, error) {
	return nil, &llm.ModelError{Op: req.Model, Err: fmt.Errorf("gemini api key not configured")}
}
