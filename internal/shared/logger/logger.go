package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// GetLogger returns zap.Logger instance, but using singleton pattern creates only one reusable instace.
// Development config by default, APP_ENV=production switches to the JSON production config.
// LOG_LEVEL overrides the level of either one.
func GetLogger() *zap.Logger {
	once.Do(func() {
		// package level vars call GetLogger before main loads the config
		_ = godotenv.Load()

		cfg := zap.NewDevelopmentConfig()
		if strings.EqualFold(os.Getenv("APP_ENV"), "production") {
			cfg = zap.NewProductionConfig()
		}
		if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
			level, err := zapcore.ParseLevel(lvl)
			if err == nil {
				cfg.Level = zap.NewAtomicLevelAt(level)
			}
		}

		var err error
		logger, err = cfg.Build()
		if err != nil {
			panic("failed logger setup : " + err.Error())
		}
	})
	return logger
}
