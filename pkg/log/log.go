// Package log provides the zap logger as an fx module.
package log

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/config"
)

var Module = fx.Module("log",
	fx.Provide(New),
)

// New builds the process logger. Production gets JSON output; everything
// else gets the development console encoder.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(
		zap.String("service", cfg.AppName),
		zap.String("version", cfg.AppVersion),
	), nil
}
