package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/SanAntonik/MRS/client"
	"github.com/SanAntonik/MRS/config"
	"github.com/SanAntonik/MRS/flow"
	"github.com/SanAntonik/MRS/notify"
	"github.com/SanAntonik/MRS/qcache"
	"github.com/SanAntonik/MRS/routes"
	"github.com/SanAntonik/MRS/session"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	gin.SetMode(gin.ReleaseMode)

	cfg := config.Load()
	sess := session.New()
	catalog := client.New(cfg.APIBaseURL(), sess, logger)

	api := &routes.API{
		Catalog: catalog,
		Config:  cfg,
		Session: sess,
		Cache:   qcache.New(),
		Search:  flow.New(catalog, notify.LogNotifier{Logger: logger}),
		Logger:  logger,
	}
	routes.Expose(api)
}
