package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/config"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/datamall"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/db"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/db/migrate"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/httpapi"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/metrics"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/arrivals"
	arrivalservice "github.com/minggliangg/my-bus-assistant-sub001/internal/modules/arrivals/service"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog"
	catalogrepo "github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/repository"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/favorites"
	favoritesrepo "github.com/minggliangg/my-bus-assistant-sub001/internal/modules/favorites/repository"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"metricsAddr", cfg.MetricsAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"apiBaseURL", cfg.APIBaseURL,
		"refreshWindow", cfg.RefreshWindow,
		"throttleInterval", cfg.ThrottleInterval,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
	)

	dbConn, err := db.Open(cfg)
	if err != nil {
		if !errors.Is(err, db.ErrStoreUnavailable) {
			return err
		}
		// Degraded mode: favorites and the catalog live only for this
		// session, but the assistant stays usable.
		slog.Warn("persistent store unavailable, falling back to in-memory store", "error", err)
		dbConn, err = db.OpenInMemory()
		if err != nil {
			return err
		}
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn); err != nil {
		return err
	}

	var ok int
	if err := dbConn.QueryRow(`SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	slog.Info("database connection successful")

	collector := metrics.NewCollector(slog.Default())

	client := datamall.NewClient(cfg.APIBaseURL, cfg.AccountKey, cfg.HTTPTimeout, slog.Default())

	catalogManager := catalog.NewManager(catalogrepo.NewRepository(dbConn), client, cfg.RefreshWindow, slog.Default(), collector)
	favoritesRepository := favoritesrepo.NewRepository(dbConn)
	unsubscribe := favoritesRepository.Subscribe(func(codes []string) {
		slog.Debug("favorites changed", "count", len(codes))
	})
	defer unsubscribe()
	arrivalsService := arrivalservice.NewService(client, cfg.ThrottleInterval, slog.Default(), collector)
	scheduler := arrivals.NewScheduler(arrivalsService.GetArrivals, cfg.ThrottleInterval, slog.Default(), collector)
	defer scheduler.Stop()

	var publisher *mqtt.Publisher
	if cfg.MQTTBroker != "" {
		publisher = mqtt.NewPublisher(cfg, slog.Default(), collector)
		scheduler.SetUpdateHandler(func(u arrivals.Update) {
			if err := publisher.PublishArrivals(u.Arrivals); err != nil {
				slog.Warn("publish arrivals failed", "busStopCode", u.BusStopCode, "error", err)
			}
		})

		// Short timeout so startup is not blocked when the broker is down.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = publisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	// Bring the catalog up to date on boot; a failure is not fatal because
	// the previously cached catalog (if any) stays usable.
	refreshCtx, refreshCancel := context.WithTimeout(ctx, 2*time.Minute)
	if err := catalogManager.Refresh(refreshCtx); err != nil {
		slog.Warn("initial catalog refresh failed", "error", err)
	}
	refreshCancel()

	mux := httpapi.NewMux(dbConn, catalogManager)
	catalog.RegisterFeature(mux, catalogManager)
	favorites.RegisterFeature(mux, favoritesRepository, catalogManager)
	arrivals.RegisterFeature(mux, arrivalsService, scheduler)

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = collector.Serve(cfg.MetricsAddr)
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop()

	if publisher != nil {
		slog.Info("mqtt disconnecting")
		publisher.Disconnect()
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics shutdown", "error", err)
		}
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
