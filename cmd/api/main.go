package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/melcloud2mqtt/internal/adapter/actor"
	"github.com/berfenger/melcloud2mqtt/internal/adapter/store"
	"github.com/berfenger/melcloud2mqtt/internal/config"
	"github.com/berfenger/melcloud2mqtt/internal/core/actor"
	"github.com/berfenger/melcloud2mqtt/internal/core/configflow"
	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/metrics"
	"github.com/berfenger/melcloud2mqtt/internal/server"
	"github.com/berfenger/melcloud2mqtt/internal/util/actorutil"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	entries, err := store.NewYAMLEntryStore(cfg.Entries.Path, logger)
	if err != nil {
		panic(err)
	}
	cloud := melcloud.NewClient(cfg.MELCloud.BaseURL, nil, logger)
	flow := configflow.NewFlowHandler(cloud, entries, cfg.MELCloud.LoginTimeout(), logger)

	// accounts from the config file are imported before the master lists the store
	if cfg.MELCloud.HasImport() {
		importAccount(flow, cfg.MELCloud, logger)
	}

	collector := metrics.NewMetricsCollector()

	props := actor.MasterProps(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, entries, accountActorProvider(cfg, cloud, logger),
			mqttActorProvider(cfg, logger), collector, logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	flow.OnEntry = func(entry domain.ConfigEntry) {
		ctx.Send(pid, domain.LoadEntryRequest{Entry: entry})
	}

	server := server.NewServer(*cfg, ctx, pid, flow, entries, metrics.NewRegistry(collector), logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func importAccount(flow *configflow.FlowHandler, cfg config.MELCloudConfig, logger *zap.Logger) {
	var result domain.FlowResult
	var err error
	if cfg.Token != "" {
		result, err = flow.StepImport(context.Background(), domain.ImportInput{Email: cfg.Email, Token: cfg.Token})
	} else {
		result, err = flow.StepUser(context.Background(), &domain.UserInput{Email: cfg.Email, Password: cfg.Password})
	}
	if err != nil {
		logger.Error("import: failed", zap.Error(err))
		return
	}
	switch result.Type {
	case domain.FLOW_RESULT_CREATE_ENTRY:
		logger.Info("import: entry created", zap.String("entry_id", result.Entry.Id))
	case domain.FLOW_RESULT_ABORT:
		if result.Reason == domain.FLOW_ABORT_ALREADY_CONFIGURED {
			logger.Info("import: entry already configured", zap.String("email", cfg.Email))
			return
		}
		logger.Error("import: aborted", zap.String("reason", result.Reason))
	}
}

func initConfig() (*config.Config, error) {

	// alias PORT => MELCLOUD2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("MELCLOUD2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("melcloud2mqtt")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	unit, err := config.CheckTemperatureUnit(cfg.Units.TemperatureUnit)
	if err != nil {
		return nil, err
	}
	cfg.Units.TemperatureUnit = unit

	// check bounds
	if cfg.MELCloud.PollIntervalSeconds < 10 {
		return nil, errors.New("config param melcloud.poll_interval_seconds should be >= 10")
	}
	if cfg.MELCloud.RefreshIntervalMinutes < 1 {
		return nil, errors.New("config param melcloud.refresh_interval_minutes should be >= 1")
	}
	if cfg.MELCloud.LoginTimeoutMillis < 1000 {
		return nil, errors.New("config param melcloud.login_timeout_millis should be >= 1000")
	}

	return &cfg, nil
}

func accountActorProvider(cfg *config.Config, cloud melcloud.Cloud, logger *zap.Logger) actor.AccountActorProvider {
	return func(entry domain.ConfigEntry, es *eventstream.EventStream) pactor.Actor {
		return actor.NewAccountActor(cfg, entry, cloud, es, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "melcloud")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("melcloud.base_url", melcloud.DEFAULT_BASE_URL)
	viper.SetDefault("melcloud.poll_interval_seconds", 60)
	viper.SetDefault("melcloud.login_timeout_millis", 10000)
	viper.SetDefault("melcloud.refresh_interval_minutes", 5)
	viper.SetDefault("units.temperature_unit", config.TEMPERATURE_UNIT_CELSIUS)
	viper.SetDefault("entries.path", "data/entries.yaml")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.MELCloud.Password = "*redacted*"
	cfg.MELCloud.Token = "*redacted*"
	slog.Info("Using", "config", cfg)
}
