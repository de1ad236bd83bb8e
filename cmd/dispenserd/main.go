package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dispenser-status-backend/config"
	"dispenser-status-backend/internal/api"
	"dispenser-status-backend/internal/events"
	"dispenser-status-backend/internal/machine"
	"dispenser-status-backend/internal/metrics"
	"dispenser-status-backend/internal/notification"
)

var CLI struct {
	Config string `short:"c" help:"Configuration file path" env:"CONFIG_PATH" default:"./config/config.yaml"`
	Port   int    `short:"p" help:"Override server.port from the configuration file"`
}

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "dispenser-backend ", log.LstdFlags)
	log.SetOutput(os.Stdout)
	log.SetPrefix("dispenser-backend ")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Printf("failed to load .env: %v", err)
	}
	kong.Parse(&CLI, kong.Description("Serves the dispenser open/closed/denied state to pollers."))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", CLI.Config, err)
	}
	if CLI.Port > 0 {
		cfg.Server.Port = CLI.Port
	}
	logger.Printf("configuration loaded successfully from %s", CLI.Config)

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller := machine.NewController(clockwork.NewRealClock(), machine.Windows{
		Open:   cfg.Machine.OpenWindow,
		Denied: cfg.Machine.DeniedWindow,
	})
	logger.Printf("state controller ready (open window %s, denied window %s)", cfg.Machine.OpenWindow, cfg.Machine.DeniedWindow)

	var (
		recorder   metrics.Recorder = metrics.NoopRecorder{}
		routerOpts api.RouterOptions
	)
	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(reg)
		routerOpts = api.RouterOptions{MetricsPath: cfg.Metrics.Path, MetricsHandler: metrics.HTTPHandler(reg)}
		logger.Printf("metrics exposed on %s", cfg.Metrics.Path)
	}
	controller.OnTransition(recorder.ObserveTransition)

	// Transition fan-out: web push and NATS, both optional.
	subscriptions := notification.NewSubscriptionRegistry()
	var (
		sinks          []notification.Sink
		webpushOptions *webpush.Options
	)
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		sinks = append(sinks, notification.NewWebPushSink(subscriptions, webpushOptions))
	} else {
		logger.Println("VAPID keys not configured; web push disabled")
	}

	var publisher *events.Publisher
	if cfg.Events.URL != "" {
		publisher, err = events.Connect(cfg.Events)
		if err != nil {
			logger.Fatalf("failed to start event publisher: %v", err)
		}
		sinks = append(sinks, publisher)
	}

	if len(sinks) > 0 {
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, sinks...)
		workerPool.Start(ctx)
		controller.OnTransition(workerPool.Observe)
	}

	// Initialize router
	handler := api.NewHandler(controller, subscriptions, webpushOptions, recorder)
	router := api.NewRouter(handler, cfg.Server, routerOpts)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	controller.Close()
	cancel()
	if publisher != nil {
		publisher.Close()
	}

	logger.Println("Server gracefully stopped")
}
