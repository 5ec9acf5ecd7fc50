package main

import (
	"context"
	"os"

	"go-glidesync/internal/config"
	"go-glidesync/internal/database"
	"go-glidesync/internal/features/connection"
	"go-glidesync/internal/features/mapping"
	"go-glidesync/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Seed inserts a development connection and an example accounts mapping
// so the API is usable right after a fresh start. Safe to run repeatedly.
func Seed(
	lc fx.Lifecycle,
	connRepo connection.ConnectionRepository,
	mappingRepo mapping.MappingRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("Seeding development data...")

				connName := "Development Glide App"
				conns, err := connRepo.List(ctx)
				if err != nil {
					logger.Error("Failed to list connections", zap.Error(err))
					return
				}
				for _, c := range conns {
					if c.Name == connName {
						logger.Info("Seed data already present, skipping")
						return
					}
				}

				conn := &connection.Connection{
					Name:       connName,
					GlideAppID: os.Getenv("SEED_GLIDE_APP_ID"),
					APIKey:     os.Getenv("SEED_GLIDE_API_KEY"),
					Status:     connection.StatusActive,
				}
				if err := connRepo.Create(ctx, conn); err != nil {
					logger.Error("Failed to create connection", zap.Error(err))
					return
				}

				m := &mapping.Mapping{
					ConnectionID:     conn.ID,
					GlideTableID:     "native-table-accounts",
					GlideTableName:   "Accounts",
					DestinationTable: "gl_accounts",
					SyncDirection:    mapping.DirectionToDestination,
					SyncFrequency:    mapping.FrequencyManual,
					ColumnMappings: map[string]mapping.ColumnMapping{
						mapping.GlideRowIDField: {
							GlideColumnID:     mapping.GlideRowIDField,
							GlideColumnName:   "Row ID",
							DestinationColumn: "glide_row_id",
							DataType:          mapping.TypeString,
							IsRowID:           true,
						},
						"Name": {
							GlideColumnID:     "Name",
							GlideColumnName:   "Name",
							DestinationColumn: "account_name",
							DataType:          mapping.TypeString,
						},
						"wvzr1": {
							GlideColumnID:     "wvzr1",
							GlideColumnName:   "Date Added Client",
							DestinationColumn: "date_added_client",
							DataType:          mapping.TypeDateTime,
						},
					},
				}
				if err := mappingRepo.Create(ctx, m); err != nil {
					logger.Error("Failed to create mapping", zap.Error(err))
					return
				}

				logger.Info("Seeding complete",
					zap.String("connectionId", conn.ID.Hex()),
					zap.String("mappingId", m.ID.Hex()))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			connection.NewConnectionRepository,
			mapping.NewMappingRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
