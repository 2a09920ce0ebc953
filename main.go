package main

import (
	"bufio"
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"speedwatch/internal/auth"
	complianceapp "speedwatch/internal/compliance/application"
	compliancehttp "speedwatch/internal/compliance/interfaces/http"
	"speedwatch/internal/config"
	"speedwatch/internal/live"
	measurementapp "speedwatch/internal/measurement/application"
	"speedwatch/internal/measurement/infrastructure/ookla"
	measurementpg "speedwatch/internal/measurement/infrastructure/postgres"
	measurementhttp "speedwatch/internal/measurement/interfaces/http"
	"speedwatch/internal/observability/metrics"
	officespg "speedwatch/internal/offices/infrastructure/postgres"
	officeshttp "speedwatch/internal/offices/interfaces/http"
	schedulesapp "speedwatch/internal/schedules/application"
	schedulespg "speedwatch/internal/schedules/infrastructure/postgres"
	scheduleshttp "speedwatch/internal/schedules/interfaces/http"
	"speedwatch/internal/timeslot"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configPath string
	httpAddr   string
	appVersion = "0.3.0"
)

var rootCmd = &cobra.Command{
	Use:   "speedwatch",
	Short: "speedwatch - scheduled ISP speed testing and compliance reporting",
	Long:  "Speedwatch runs scheduled speed tests per office and ISP link, classifies them into daily time slots and reports compliance.",
	Run:   run,
}

func init() {
	rootCmd.Version = appVersion
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file (optional)")
	rootCmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	if cmd.Flags().Changed("http-addr") {
		cfg.HTTPAddr = httpAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config error: %v", err)
	}

	refZone, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatalf("timezone error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	m := metrics.New()
	resolver := timeslot.NewResolver(cfg.Timezone, logger)

	officeRepo := officespg.NewOfficeRepository(db)
	recordRepo := measurementpg.NewRecordRepository(db)
	scheduleRepo := schedulespg.NewScheduleRepository(db)

	broadcaster := live.NewBroadcaster(logger)

	var runnerOpts []ookla.Option
	if cfg.ServerID != "" {
		runnerOpts = append(runnerOpts, ookla.WithServerID(cfg.ServerID))
	}
	runner := ookla.NewRunner(logger, runnerOpts...)

	measurementService, err := measurementapp.NewService(
		recordRepo,
		runner,
		measurementapp.SystemClock{},
		logger,
		measurementapp.WithMetrics(m),
		measurementapp.WithOnRecorded(broadcaster.OnRecorded),
	)
	if err != nil {
		logger.Fatalf("measurement service error: %v", err)
	}

	triggers := schedulesapp.NewCronTriggers(refZone)
	manager, err := schedulesapp.NewManager(
		scheduleRepo,
		officeRepo,
		measurementService,
		triggers,
		refZone,
		logger,
		schedulesapp.WithManagerMetrics(m),
	)
	if err != nil {
		logger.Fatalf("schedule manager error: %v", err)
	}

	complianceService, err := complianceapp.NewService(
		officeRepo,
		recordRepo,
		resolver,
		logger,
		complianceapp.WithMetrics(m),
	)
	if err != nil {
		logger.Fatalf("compliance service error: %v", err)
	}

	officeHandler, err := officeshttp.NewHandler(officeRepo, manager)
	if err != nil {
		logger.Fatalf("office handler error: %v", err)
	}
	scheduleHandler, err := scheduleshttp.NewHandler(scheduleRepo, manager)
	if err != nil {
		logger.Fatalf("schedule handler error: %v", err)
	}
	measurementHandler, err := measurementhttp.NewHandler(measurementService, officeRepo, recordRepo, resolver)
	if err != nil {
		logger.Fatalf("measurement handler error: %v", err)
	}
	complianceHandler, err := compliancehttp.NewHandler(complianceService)
	if err != nil {
		logger.Fatalf("compliance handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/offices", officeHandler)
	mux.Handle("/api/v1/offices/", officeHandler)
	mux.Handle("/api/v1/schedules", scheduleHandler)
	mux.Handle("/api/v1/schedules/", scheduleHandler)
	mux.Handle("/api/v1/measurements", measurementHandler)
	mux.Handle("/api/v1/measurements/", measurementHandler)
	mux.Handle("/api/v1/reports/", complianceHandler)
	mux.Handle("/api/v1/live/ws", broadcaster)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		logger.Fatalf("schedule manager start error: %v", err)
	}

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown error: %v", err)
	}
	manager.Stop()
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade pass through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}
