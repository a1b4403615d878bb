package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	facevault "github.com/mindwatch/facevault"
	"github.com/mindwatch/facevault/blobstore"
	"github.com/mindwatch/facevault/internal/config"
	"github.com/mindwatch/facevault/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// service builds a Service from the loaded configuration. The CLI always
// takes the process lock; it may run beside a monitoring daemon.
func (c *commandContext) service() (*facevault.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	opts := []facevault.Option{
		facevault.WithLogger(newLoggerFromConfig(cfg)),
		facevault.WithDimension(cfg.Model.EmbeddingDimension),
		facevault.WithBackupWindow(time.Duration(cfg.Model.BackupWindowMinutes) * time.Minute),
		facevault.WithCountBounds(store.CountBounds{
			WarnMin:  cfg.Model.CountWarnMin,
			WarnMax:  cfg.Model.CountWarnMax,
			FatalMin: cfg.Model.CountFatalMin,
			FatalMax: cfg.Model.CountFatalMax,
		}),
		facevault.WithTolerance(cfg.Recognition.Tolerance, cfg.Recognition.RetryTolerance),
		facevault.WithoutAutoRefresh(),
		facevault.WithProcessLock(),
	}

	if cfg.Mirror.Enabled {
		client, err := minio.New(cfg.Mirror.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Mirror.AccessKey, cfg.Mirror.SecretKey, ""),
			Secure: cfg.Mirror.Secure,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, facevault.WithMirror(
			blobstore.NewMinioStore(client, cfg.Mirror.Bucket, cfg.Mirror.Prefix)))
	}

	return facevault.New(cfg.Model.Dir, opts...)
}

func newLoggerFromConfig(cfg *config.Config) *facevault.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if cfg.Logging.Format == "json" {
		return facevault.NewJSONLogger(level)
	}
	return facevault.NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
