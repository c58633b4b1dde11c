package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/config"
	"github.com/berfenger/melcloud2mqtt/internal/core/port"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	HEALTH_CHECK_TIMEOUT = 10 * time.Second
	COMMAND_TIMEOUT      = 15 * time.Second
	ENTRY_TIMEOUT        = 5 * time.Second
)

type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	flow        port.ConfigFlow
	store       port.EntryStore
	gatherer    prometheus.Gatherer
	logger      *zap.Logger
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, flow port.ConfigFlow,
	store port.EntryStore, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	NewServer := &Server{
		port:        cfg.Port,
		rootContext: rootContext,
		masterActor: masterActor,
		httpLog:     cfg.HttpLog,
		flow:        flow,
		store:       store,
		gatherer:    gatherer,
		logger:      logger,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
