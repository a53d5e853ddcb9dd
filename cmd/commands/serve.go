package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grow_controller/internal/config"
	"grow_controller/internal/engine"
	"grow_controller/internal/fusion"
	"grow_controller/internal/handlers"
	"grow_controller/internal/journal"
	"grow_controller/internal/logger"
	"grow_controller/internal/models"
	"grow_controller/internal/notify"
	"grow_controller/internal/repository"
	"grow_controller/internal/repository/db"
	"grow_controller/internal/server"
	"grow_controller/internal/service"
	"grow_controller/internal/transport"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	shutdownTimeout  = 10 * time.Second
	stateLoadTimeout = 5 * time.Second
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP(config.KeyPort, "p", "", "HTTP port (default 8080)")
	_ = viper.BindPFlag(config.KeyPort, serveCmd.Flags().Lookup(config.KeyPort))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller",
	Long:  `Starts the serial transport, the control engine and the HTTP server until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper(), viper.GetString(config.KeyConfig))
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func serve(cfg config.Config) error {
	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	sqlDB, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("sqlite_close_failed", "err", cerr)
		}
	}()

	repos := repository.NewRepository(sqlDB)
	if cfg.StateBackend == config.BackendFile {
		repos.StateRepo = repository.NewStateFile(afero.NewOsFs(), cfg.StateFilePath)
	}

	state, err := loadState(repos.StateRepo, log)
	if err != nil {
		return err
	}

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jr := journal.New(repos.SensorRepo, repos.HardwareRepo, cfg.JournalQueue, log)
	journalDone := make(chan struct{})
	go func() {
		defer close(journalDone)
		jr.Run(ctx)
	}()

	hub := notify.NewHub(log)
	hub.StateChanged(state)

	ids := make([]string, 0, len(cfg.Serial.Endpoints)+2)
	for _, ep := range cfg.Serial.Endpoints {
		ids = append(ids, ep.ID)
	}
	ids = append(ids, cfg.Serial.Coordinator.ID, transport.ActuatorLinkID)
	status := transport.NewStatusBoard(ids...)
	status.Observe(hub.ConnectionChanged)
	hub.ConnectionChanged(status.Connection())

	actuators := transport.NewActuatorHub(status, log)
	mirror := &transport.SwitchSink{}
	sinks := transport.MultiSink{actuators, mirror}

	serial := transport.NewManager(cfg.Serial, afero.NewOsFs(), transport.SerialPorts{}, transport.SerialPorts{}, status, log)
	go serial.Run(ctx)

	eng := engine.New(state, engine.Config{
		Fusion: fusion.Config{LeftSource: cfg.Fusion.Left, RightSource: cfg.Fusion.Right},
	}, engine.Deps{
		Sink:        sinks,
		Notifier:    hub,
		Store:       repos.StateRepo,
		SensorLog:   jr,
		HardwareLog: jr,
		Log:         log,
	})
	actuators.OnConnect(eng.ReplayToActuators)
	go eng.Run(ctx, serial.Readings())

	services := service.NewService(repos, eng, hub, service.AuthConfig{
		SigningKey: cfg.SigningKey,
		TokenTTL:   cfg.TokenTTL,
	})
	apiHandler := handlers.NewHandler(services, handlers.Streams{GUI: hub, Actuator: actuators}, log)

	srv := &server.Server{}
	errCh := runHTTPServer(srv, cfg.Port, apiHandler, log)

	// the broker may be slow or down; control runs without the mirror meanwhile
	noMirror := make(chan struct{})
	close(noMirror)
	var mirrorDone <-chan struct{} = noMirror
	if cfg.MQTTEnabled() {
		mirrorDone = transport.StartMQTTMirror(ctx, cfg.MQTT, mirror, log)
	}

	waitForShutdown(errCh, log)

	// stop background goroutines
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server_forced_shutdown", "err", err)
	}
	select {
	case <-eng.Done():
	case <-shutdownCtx.Done():
		log.Warnw("engine_stop_timeout")
	}
	select {
	case <-mirrorDone:
	case <-shutdownCtx.Done():
		log.Warnw("mqtt_disconnect_timeout")
	}
	select {
	case <-journalDone:
	case <-shutdownCtx.Done():
		log.Warnw("journal_drain_timeout")
	}
	log.Infow("shutdown_complete")
	return nil
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg config.Config, log *logger.Logger) (*sql.DB, error) {
	log.Infow("open_sqlite", "path", cfg.DBPath)
	sqlDB, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	return sqlDB, nil
}

// loadState returns the persisted state or an empty one on first start.
func loadState(repo repository.StateRepo, log *logger.Logger) (models.AppState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), stateLoadTimeout)
	defer cancel()

	st, found, err := repo.Load(ctx)
	if err != nil {
		return models.AppState{}, fmt.Errorf("load state: %w", err)
	}
	if !found {
		log.Infow("state_not_found_starting_empty")
		return *models.NewAppState(), nil
	}
	log.Infow("state_loaded", "buttons", len(st.Buttons), "setpoints", len(st.Setpoints), "fan_curves", len(st.FanCurves))
	return st, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

// waitForShutdown blocks until a termination signal or a server failure.
func waitForShutdown(errCh <-chan error, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Infow("shutting_down", "signal", sig.String())
	case err := <-errCh:
		log.Errorw("http_server_failed", "err", err)
	}
}
