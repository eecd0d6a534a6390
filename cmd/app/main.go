package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/homelet-labs/homelet-back/internal/cache"
	"github.com/homelet-labs/homelet-back/internal/config"
	"github.com/homelet-labs/homelet-back/internal/db"
	"github.com/homelet-labs/homelet-back/internal/identity"
	"github.com/homelet-labs/homelet-back/internal/media"
	"github.com/homelet-labs/homelet-back/internal/service"
	"github.com/homelet-labs/homelet-back/internal/transport"
)

func main() {
	fx.New(
		fx.Provide(
			config.NewConfig,
			newLogger,
			db.NewGormClient,
			identity.NewStore,
			media.NewUploader,
			cache.NewViewCache,
			service.New,
			transport.NewHTTPServer,
		),
		fx.Invoke(func(*transport.HTTPServer) {}),
	).Run()
}

func newLogger() (*zap.SugaredLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
