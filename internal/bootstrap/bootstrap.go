// Package bootstrap wires the pieces every Cubtera entrypoint needs —
// Viper, Config, the zap-backed logger and an optional Mongo client — so
// cmd/cubtera and cmd/cubtera-api stay thin shells around pkg/invapi and
// pkg/runner rather than duplicating construction logic.
package bootstrap

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/cubtera/cubtera/pkg/config"
	"github.com/cubtera/cubtera/pkg/datasource"
	"github.com/cubtera/cubtera/pkg/logging"
)

// App bundles every dependency a handler or CLI command needs.
type App struct {
	Cfg       *config.Config
	Logger    logging.Interface
	ZapLogger *zap.Logger // same backing logger as Logger, for zap-native middleware
	Fs        afero.Fs
	DB        *mongo.Client // nil when cfg.DB is unset
	DlogDB    *mongo.Client // nil when cfg.DlogDB is unset
}

// New reads CUBTERA_* environment variables and an optional config file
// into Viper, builds the Config and logger, and connects to Mongo when
// cfg.DB/cfg.DlogDB point at a connection string — lazily, once, at
// startup rather than per-request (spec.md §6.6 / §6.7).
func New(ctx context.Context, configFile string) (*App, error) {
	v := viper.New()
	config.BindEnv(v)

	cfg, err := config.New(v, configFile)
	if err != nil {
		return nil, err
	}

	zapLogger, err := logging.NewZap(v)
	if err != nil {
		return nil, err
	}
	logger := logging.ForZap(zapLogger)

	app := &App{Cfg: cfg, Logger: logger, ZapLogger: zapLogger, Fs: afero.NewOsFs()}

	if cfg.DB != "" {
		client, err := connect(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		app.DB = client
	}
	if cfg.DlogDB != "" {
		client, err := connect(ctx, cfg.DlogDB)
		if err != nil {
			logger.Warnf("can't connect to dlog DB: %v", err)
		} else {
			app.DlogDB = client
		}
	}

	return app, nil
}

func connect(ctx context.Context, uri string) (*mongo.Client, error) {
	return mongo.Connect(ctx, options.Client().ApplyURI(uri))
}

// StorageKind reports which DataSource backend to use: DB when a
// connection was established, FS otherwise.
func (a *App) StorageKind() datasource.StorageKind {
	if a.DB != nil {
		return datasource.KindDB
	}
	return datasource.KindFS
}

// NewDataSource builds the DataSourceFactory signature pkg/invapi expects
// (org, dimType) -> DataSource.
func (a *App) NewDataSource(org, dimType string) (datasource.DataSource, error) {
	return datasource.New(a.StorageKind(), a.Fs, a.DB, a.Cfg.InventoryPath, org, dimType, a.Cfg.FileNameSeparator, a.Logger)
}

// NewUnitDataSource adapts NewDataSource to the single-org signature
// pkg/unit expects while resolving a unit for a fixed org.
func (a *App) NewUnitDataSource(org string) func(dimType string) (datasource.DataSource, error) {
	return func(dimType string) (datasource.DataSource, error) {
		return a.NewDataSource(org, dimType)
	}
}

// Close disconnects any Mongo clients opened by New.
func (a *App) Close(ctx context.Context) {
	if a.DB != nil {
		_ = a.DB.Disconnect(ctx)
	}
	if a.DlogDB != nil {
		_ = a.DlogDB.Disconnect(ctx)
	}
}
