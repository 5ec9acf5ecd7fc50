package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-glidesync/internal/common/api"
	"go-glidesync/internal/config"
	"go-glidesync/internal/database"
	"go-glidesync/internal/destination"
	"go-glidesync/internal/features/connection"
	"go-glidesync/internal/features/mapping"
	"go-glidesync/internal/features/relationship"
	sync_feature "go-glidesync/internal/features/sync"
	"go-glidesync/internal/features/system"
	"go-glidesync/internal/glide"
	"go-glidesync/internal/logger"
	"go-glidesync/internal/middleware"
	"go-glidesync/pkg/utils"

	_ "go-glidesync/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Use custom CORS middleware
	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// NewSyncEngine wires the engine with the configured page limit.
func NewSyncEngine(
	mappings mapping.MappingRepository,
	connections connection.ConnectionService,
	client glide.Client,
	dest destination.Store,
	runs sync_feature.SyncRunRepository,
	errs sync_feature.SyncErrorRepository,
	relationships sync_feature.RelationshipRecorder,
	logger *zap.Logger,
	cfg *config.Config,
) *sync_feature.Engine {
	return sync_feature.NewEngine(mappings, connections, client, dest, runs, errs, relationships, logger, cfg.SyncPageLimit)
}

// @title           GlideSync API
// @version         1.0
// @description     Glide to relational-database sync engine using Fiber and Uber Fx.

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Databases
			database.NewDatabase,
			database.NewPostgres,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Glide client and destination store
			glide.NewClient,
			destination.NewStore,

			// Initialize Repository
			connection.NewConnectionRepository,
			mapping.NewMappingRepository,
			sync_feature.NewSyncRunRepository,
			sync_feature.NewSyncErrorRepository,
			relationship.NewCandidateRepository,

			// Initialize Service
			connection.NewConnectionService,
			func(dest destination.Store) mapping.SchemaIntrospector { return dest },
			mapping.NewValidator,
			mapping.NewMappingService,
			relationship.NewRelationshipService,
			func(svc relationship.RelationshipService) sync_feature.RelationshipRecorder { return svc },
			NewSyncEngine,
			sync_feature.NewSyncService,
			func(svc sync_feature.SyncService) mapping.RunPurger { return svc },
			sync_feature.NewScheduler,

			// Initialize Controller
			connection.NewConnectionController,
			mapping.NewMappingController,
			sync_feature.NewSyncController,
			relationship.NewRelationshipController,

			// Register Routes
			AsRoute(connection.NewConnectionApi),
			AsRoute(mapping.NewMappingApi),
			AsRoute(sync_feature.NewSyncApi),
			AsRoute(relationship.NewRelationshipApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewHealthApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, scheduler *sync_feature.Scheduler) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return scheduler.Start()
					},
					OnStop: func(ctx context.Context) error {
						return scheduler.Stop()
					},
				})
			},
		),
	)

	app.Run()
}
