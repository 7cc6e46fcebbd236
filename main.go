package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/pneumoscan/config"
	"github.com/cppla/pneumoscan/events"
	"github.com/cppla/pneumoscan/inference"
	"github.com/cppla/pneumoscan/models"
	"github.com/cppla/pneumoscan/routes"
	"github.com/cppla/pneumoscan/services"
	"github.com/cppla/pneumoscan/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger early
	log, err := utils.InitLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := config.InitDatabase(cfg, models.All()...)
	if err != nil {
		return err
	}

	rdb, err := utils.NewRedis(ctx, cfg)
	if err != nil {
		return err
	}

	var (
		revoked   services.RevocationList = services.NewMemoryRevocationList()
		postCache services.PostCache
	)
	if rdb != nil {
		defer rdb.Close()
		revoked = services.NewRedisRevocationList(rdb)
		postCache = services.NewRedisPostCache(rdb, 5*time.Minute, log)
	}

	users := services.NewUserService(db, 0)
	posts := services.NewPostService(db, postCache)
	gate := services.NewAuthGate(users, services.NewTokenIssuer(cfg.SessionSecret, cfg.SessionTTL()), revoked, log)

	archive, err := newArchive(ctx, cfg)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	}
	defer publisher.Close()

	model := inference.NewTFServingModel(cfg.ModelServerURL, cfg.ModelName, &http.Client{Timeout: cfg.ModelTimeout()})
	opts := inference.Options{
		Retention: cfg.ArchiveRetention(),
		Events:    publisher,
		Timeout:   cfg.ModelTimeout(),
		Logger:    log,
	}
	if archive != nil {
		opts.Archive = archive
		opts.DB = db
		inference.StartCleaner(ctx, db, archive, 5*time.Minute, log)
	}
	classifier := inference.NewClassifier(model, opts)

	var captcha *utils.Captcha
	if cfg.RegisterCaptchaEnabled {
		captcha = utils.NewCaptcha(rdb)
	}

	accessLog, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err != nil {
		log.Warn("gin access log unavailable, using app logger", zap.Error(err))
		accessLog = nil
	}

	r, err := routes.SetupRouter(routes.Deps{
		Config:     cfg,
		DB:         db,
		Users:      users,
		Posts:      posts,
		Gate:       gate,
		Classifier: classifier,
		Captcha:    captcha,
		Guard:      utils.NewRegistrationGuard(rdb, cfg.RegisterMaxPerIPPerDay),
		Logger:     log,
		AccessLog:  accessLog,
	})
	if err != nil {
		return err
	}

	log.Info("starting server (graceful)", zap.String("port", cfg.AppPort), zap.String("model", cfg.ModelServerURL))
	return utils.GraceServer(ctx, ":"+cfg.AppPort, r, log)
}

func newArchive(ctx context.Context, cfg config.AppConfig) (inference.Archive, error) {
	switch cfg.ArchiveBackend {
	case "", "none":
		return nil, nil
	case "local":
		return inference.NewLocalArchive(cfg.ArchiveDir), nil
	case "minio":
		return inference.NewMinIOArchive(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
	}
	return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
}
