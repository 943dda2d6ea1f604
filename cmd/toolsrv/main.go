// Command toolsrv serves the catalog tool surface over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	toolx "github.com/trungdn/milk-sell-agent/agent/tool"
	"github.com/trungdn/milk-sell-agent/httpapi"
	"github.com/trungdn/milk-sell-agent/mail"
	configx "github.com/trungdn/milk-sell-agent/pkg/config"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
	_ "github.com/trungdn/milk-sell-agent/pkg/logger/autoload"
	qstashx "github.com/trungdn/milk-sell-agent/pkg/qstash"
	"github.com/trungdn/milk-sell-agent/store/catalog"
)

type serverConfig struct {
	Port            string        `envconfig:"PORT" split_words:"true" default:"9000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

type orderConfig struct {
	EventsDestination string `envconfig:"EVENTS_DESTINATION" split_words:"true"`
}

func main() {
	log := logx.Component("toolsrv")

	srvCfg := configx.MustNew[serverConfig]("TOOLSRV")
	apiCfg := configx.MustNew[httpapi.Config]("TOOLSRV")
	storeCfg := configx.MustNew[catalog.Config]("CATALOG")
	mailCfg := configx.MustNew[mail.Config]("SMTP")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	orderCfg := configx.MustNew[orderConfig]("ORDER")

	store := catalog.NewStore(*storeCfg)
	if err := store.Connect(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("catalog connect failed")
	}
	defer store.Close()

	mailer := mail.FromConfig(*mailCfg)

	var saleOpts []toolx.SaleOption
	if qstashCfg.URL != "" && orderCfg.EventsDestination != "" {
		publisher, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("qstash init failed")
		}
		saleOpts = append(saleOpts, toolx.WithEventPublisher(publisher, orderCfg.EventsDestination))
	}
	sale := toolx.NewSale(store, mailer, saleOpts...)
	registry := toolx.NewRegistry(store, sale)

	router := httpapi.NewRouter(registry, *apiCfg)
	srv := &http.Server{Addr: ":" + srvCfg.Port, Handler: router}

	go func() {
		log.Info().Str("port", srvCfg.Port).Int("tools", len(registry.Infos())).Msg("tool server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("tool server stopped")
}
