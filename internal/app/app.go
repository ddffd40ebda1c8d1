package app

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/alerts"
	"fleetops/fleet-portal/fleet-portal-backend/internal/assets"
	"fleetops/fleet-portal/fleet-portal-backend/internal/auth"
	"fleetops/fleet-portal/fleet-portal-backend/internal/config"
	"fleetops/fleet-portal/fleet-portal-backend/internal/dashboard"
	"fleetops/fleet-portal/fleet-portal-backend/internal/documents"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inventory"
	"fleetops/fleet-portal/fleet-portal-backend/internal/notifications"
	"fleetops/fleet-portal/fleet-portal-backend/internal/notifications/websocket"
	"fleetops/fleet-portal/fleet-portal-backend/internal/reports"
	"fleetops/fleet-portal/fleet-portal-backend/internal/settings"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
	"fleetops/fleet-portal/fleet-portal-backend/pkg/airtable"
	"fleetops/fleet-portal/fleet-portal-backend/pkg/database"
	"fleetops/fleet-portal/fleet-portal-backend/pkg/storage"
)

// App holds every service of the portal, wired for one persistence backend.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Auth        auth.Service
	Assets      assets.Service
	Inventory   inventory.Service
	Inspections inspection.Service
	// Records is the stored inspection history behind Inspections.
	Records     inspection.Repository
	WorkOrders  workorders.Service
	Settings    settings.Service
	Documents   documents.Service
	Reports     *reports.Service

	Aggregator *dashboard.Aggregator
	Scheduler  *dashboard.Scheduler
	Alerts     *alerts.Engine
	Hub        *websocket.Manager

	db       *database.DB
	cache    *dashboard.Cache
	dispatch context.CancelFunc
}

type repositories struct {
	users       auth.Repository
	trailers    assets.Repository
	inventory   inventory.Repository
	inspections inspection.Repository
	workOrders  workorders.Repository
	profiles    settings.Repository
	documents   documents.Repository
}

// Build wires the portal. The caller owns the returned App and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger}

	repos, err := a.openRepositories(ctx)
	if err != nil {
		return nil, err
	}

	s3, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	renderer := reports.NewRenderer(cfg.Server.CompanyName)

	a.Auth = auth.NewService(repos.users, cfg.Security.JWTSecret, cfg.Security.TokenTTL.Duration, logger)
	if cfg.Persistence.Backend == config.BackendLocal {
		if err := a.Auth.SeedDemoUsers(ctx); err != nil {
			logger.Warn("Failed to seed demo users", zap.Error(err))
		}
	}
	a.Assets = assets.NewService(repos.trailers, logger)
	a.Settings = settings.NewService(repos.profiles, logger)

	a.cache = dashboard.NewCache(cfg.Dashboard.CacheTTL.Duration)
	var invalidator *dashboard.Invalidator
	a.Inventory = inventory.NewService(repos.inventory, cfg.Inventory.LowStockThreshold, logger, func() {
		invalidator.InventoryChanged()
	})

	a.Aggregator = dashboard.NewAggregator(dashboard.Sources{
		Trailers:    a.Assets,
		Inspections: repos.inspections,
		Inventory:   a.Inventory,
		WorkOrders:  repos.workOrders,
	}, a.cache, dashboard.AggregatorConfig{
		PendingWindow: daysToDuration(cfg.Dashboard.PendingWindowDays),
		RecentLimit:   cfg.Dashboard.RecentInspections,
	}, logger)
	invalidator = dashboard.NewInvalidator(a.Aggregator)

	var storageProvider *documents.StorageProvider
	if s3 != nil {
		storageProvider = documents.NewStorageProvider(s3, cfg.Storage.Bucket, cfg.Storage.Prefix)
	}
	a.Documents = documents.NewService(documents.Config{
		Repository:         repos.documents,
		Storage:            storageProvider,
		InspectionRenderer: renderer,
		WorkOrderRenderer:  renderer,
		InspectionKeys:     repos.inspections,
		WorkOrderKeys:      repos.workOrders,
		URLTTL:             cfg.Storage.URLTTL.Duration,
	}, logger)

	a.Hub = websocket.NewManager(cfg.Server.AllowedOrigins, logger)
	alerter, err := a.openAlerter(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	notifier := notifications.NewNotifier(a.Hub, alerter, logger)

	var (
		inspectionListeners = []inspection.SubmitListener{invalidator, notifier}
		workOrderListeners  = []workorders.Listener{invalidator, notifier}
	)
	if storageProvider != nil {
		archiver := documents.NewArchiver(a.Documents, logger)
		inspectionListeners = append(inspectionListeners, archiver)
		workOrderListeners = append(workOrderListeners, archiver)
	}

	a.WorkOrders = workorders.NewService(repos.workOrders, a.Inventory, a.Assets, renderer, logger, workOrderListeners...)
	a.Inspections = inspection.NewService(
		repos.inspections,
		assets.NewDirectory(repos.trailers),
		inspection.NewSessionStore(cfg.Wizard.SessionTTL.Duration),
		inspection.NewAssembler(repos.inspections, inspection.NewDataURLEncoder(), logger),
		renderer,
		inspection.ServiceOptions{MaxPhotoBytes: cfg.Wizard.MaxPhotoBytes},
		logger,
		inspectionListeners...,
	)

	a.Records = repos.inspections
	a.Reports = reports.NewService(reports.Sources{
		Trailers:    a.Assets,
		Inspections: repos.inspections,
		Inventory:   a.Inventory,
		WorkOrders:  a.WorkOrders,
	}, logger)

	a.Alerts = alerts.NewEngine(alerts.Sources{
		Inventory:   a.Inventory,
		Inspections: repos.inspections,
	}, nil, logger)
	dispatchCtx, cancel := context.WithCancel(context.Background())
	a.dispatch = cancel
	go alerts.Dispatch(dispatchCtx, a.Alerts, a.Hub, logger)

	sinks := []dashboard.Sink{a.Alerts}
	if cfg.Persistence.Backend == config.BackendAirtable && cfg.Airtable.StatsTable != "" {
		sinks = append(sinks, dashboard.NewAirtableSink(a.airtableClient(), cfg.Airtable.StatsTable))
	}
	a.Scheduler = dashboard.NewScheduler(a.Aggregator, logger, sinks...)

	logger.Info("Portal wired",
		zap.String("backend", cfg.Persistence.Backend),
		zap.Bool("archive", storageProvider != nil),
		zap.Bool("alerts", alerter != nil))
	return a, nil
}

func (a *App) openRepositories(ctx context.Context) (*repositories, error) {
	cfg := a.Config
	switch cfg.Persistence.Backend {
	case config.BackendPostgres:
		db, err := database.Open(database.Config{
			URL:          cfg.Database.GetDatabaseURL(),
			MaxOpenConns: cfg.Database.MaxConnections,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			MaxLifetime:  cfg.Database.MaxLifetime.Duration,
			Debug:        cfg.Server.Mode == "debug",
		})
		if err != nil {
			return nil, err
		}
		a.db = db
		if cfg.Database.AutoMigrate {
			schemas := []string{assets.Schema, inventory.Schema, inspection.Schema, documents.Schema}
			if err := db.Migrate(ctx, schemas, &auth.User{}, &workorders.WorkOrder{}, &settings.UserProfile{}); err != nil {
				db.Close()
				return nil, err
			}
		}
		repos := &repositories{
			users:       auth.NewGormRepository(db.Gorm),
			trailers:    assets.NewPostgresRepository(db.SQL),
			inventory:   inventory.NewPostgresRepository(db.SQL),
			inspections: inspection.NewPostgresRepository(db.SQL),
			workOrders:  workorders.NewGormRepository(db.Gorm),
			profiles:    settings.NewGormRepository(db.Gorm),
			documents:   documents.NewRepository(db.SQL),
		}
		if err := seedEmpty(ctx, repos); err != nil {
			a.Logger.Warn("Failed to seed reference data", zap.Error(err))
		}
		return repos, nil

	case config.BackendAirtable:
		client := a.airtableClient()
		return &repositories{
			users:       auth.NewMemoryRepository(),
			trailers:    assets.NewMemoryRepository(assets.SeedTrailers()...),
			inventory:   inventory.NewAirtableRepository(client, cfg.Airtable.InventoryTable),
			inspections: inspection.NewAirtableRepository(client, cfg.Airtable.InspectionTable),
			workOrders:  workorders.NewAirtableRepository(client, cfg.Airtable.WorkOrderTable),
			profiles:    settings.NewMemoryRepository(),
			documents:   documents.NewMemoryRepository(),
		}, nil

	default:
		return &repositories{
			users:       auth.NewMemoryRepository(),
			trailers:    assets.NewMemoryRepository(assets.SeedTrailers()...),
			inventory:   inventory.NewMemoryRepository(inventory.SeedItems()...),
			inspections: inspection.NewMemoryRepository(),
			workOrders:  workorders.NewMemoryRepository(workorders.SeedWorkOrders()...),
			profiles:    settings.NewMemoryRepository(),
			documents:   documents.NewMemoryRepository(),
		}, nil
	}
}

// seedEmpty loads the reference fleet and parts list into empty tables.
func seedEmpty(ctx context.Context, repos *repositories) error {
	trailers, err := repos.trailers.List(ctx)
	if err != nil {
		return err
	}
	if len(trailers) == 0 {
		for _, t := range assets.SeedTrailers() {
			t := t
			if err := repos.trailers.Create(ctx, &t); err != nil {
				return fmt.Errorf("trailer %s: %w", t.Number, err)
			}
		}
	}

	items, err := repos.inventory.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		for _, it := range inventory.SeedItems() {
			it := it
			if err := repos.inventory.Create(ctx, &it); err != nil {
				return fmt.Errorf("item %s: %w", it.Name, err)
			}
		}
	}
	return nil
}

func daysToDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

func (a *App) airtableClient() *airtable.Client {
	cfg := a.Config.Airtable
	return airtable.NewClient(airtable.Config{
		APIKey:  cfg.APIKey,
		BaseID:  cfg.BaseID,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout.Duration,
	})
}

// openStorage returns the report archive client. Local mode always archives
// in memory; other backends archive only when a bucket is configured.
func (a *App) openStorage(ctx context.Context) (storage.S3Client, error) {
	cfg := a.Config
	if cfg.Storage.Bucket == "" {
		if cfg.Persistence.Backend == config.BackendLocal {
			cfg.Storage.Bucket = "local"
			return storage.NewMemoryClient(), nil
		}
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, storage.Config{
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}

func (a *App) openAlerter(ctx context.Context) (notifications.DefectAlerter, error) {
	cfg := a.Config.Alerts
	if cfg.TopicARN == "" {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return notifications.NewSNSAlerter(sns.NewFromConfig(awsCfg), cfg.TopicARN), nil
}

// Close stops background work and releases the database.
func (a *App) Close() {
	if a.dispatch != nil {
		a.dispatch()
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.cache != nil {
		a.cache.Stop()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}
