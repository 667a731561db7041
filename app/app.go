package app

import (
	"context"
	"fmt"
	"os"

	a "mediband/api/aws"
	"mediband/api/cloudflare"
	"mediband/api/config"
	"mediband/api/db"
	"mediband/api/internal"
	"mediband/api/internal/service"
	"mediband/api/internal/session"
	"mediband/api/internal/store"
	"mediband/api/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App owns every long lived resource the server needs.
type App struct {
	Router *gin.Engine

	db       *gorm.DB
	sessions interface{ Close() error }
	sweeper  *cron.Cron
}

// New connects to the database, the session backend and object storage
// and builds the router on top of them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	resubmit, err := store.ParseResubmitPolicy(cfg.Medform.ResubmitPolicy)
	if err != nil {
		return nil, err
	}

	lookup, err := service.ParseReadPolicy(cfg.Medform.LookupPolicy)
	if err != nil {
		return nil, err
	}

	conn, err := db.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	app := &App{db: conn}

	sessStore, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.sessions = sessStore

	objects, err := newObjectStorage(ctx, cfg.Storage)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize object storage, %w", err)
	}

	tempDir := cfg.Upload.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	sweeper, err := service.TempCleanup(tempDir, cfg.Upload.TempMaxAge)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to schedule temp cleanup, %w", err)
	}
	app.sweeper = sweeper

	tokens, err := security.NewTokenHasher(cfg.Session.Secret)
	if err != nil {
		app.Close()
		return nil, err
	}

	manager := session.NewManager(session.Config{
		TTL:           cfg.Session.TTL,
		TouchInterval: cfg.Session.TouchInterval,
	}, sessStore, tokens)

	auth, err := service.NewAuthenticator(store.NewUserStore(conn), security.New(), manager)
	if err != nil {
		app.Close()
		return nil, err
	}

	uploader := service.NewUploader(objects, service.UploadConfig{
		MaxFiles:     cfg.Upload.MaxFiles,
		MaxSize:      cfg.Upload.MaxSize,
		AllowedTypes: cfg.Upload.AllowedTypes,
		TempDir:      tempDir,
	})

	d := &internal.Deps{
		Config:   cfg,
		Auth:     auth,
		Guard:    service.NewRecordGuard(store.NewRecordStore(conn), uploader, resubmit, lookup),
		Uploader: uploader,
	}

	app.Router = NewRouter(ctx, d)
	return app, nil
}

type closableStore interface {
	session.Store
	Close() error
}

func newSessionStore(ctx context.Context, c config.SessionConfig) (closableStore, error) {
	if c.Store == "redis" {
		s, err := session.NewRedisStore(ctx, c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis session store, %w", err)
		}

		return s, nil
	}

	zap.L().Warn("Using the in-memory session store, sessions are lost on restart")
	return session.NewMemoryStore(), nil
}

func newObjectStorage(ctx context.Context, c config.StorageConfig) (*a.S3Client, error) {
	o := a.Options{
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Bucket:          c.Bucket,
		PublicBaseURL:   c.PublicBaseURL,
	}

	if c.Type == "r2" {
		return cloudflare.NewR2(ctx, c.AccountID, o)
	}

	return a.NewS3(ctx, o)
}

// Close stops the temp sweeper and releases the session backend and the
// database. It is safe on a partially built App.
func (app *App) Close() error {
	var err error

	if app.sweeper != nil {
		<-app.sweeper.Stop().Done()
	}

	if app.sessions != nil {
		err = multierr.Append(err, app.sessions.Close())
	}

	if app.db != nil {
		sqlDB, dbErr := app.db.DB()
		if dbErr == nil {
			dbErr = sqlDB.Close()
		}
		err = multierr.Append(err, dbErr)
	}

	return err
}
