package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/jsonexporter/json-exporter/pkg/compile"
	"github.com/jsonexporter/json-exporter/pkg/config"
	"github.com/jsonexporter/json-exporter/pkg/expose"
	"github.com/jsonexporter/json-exporter/pkg/health"
	"github.com/jsonexporter/json-exporter/pkg/httpfetch"
	"github.com/jsonexporter/json-exporter/pkg/scheduler"
	"github.com/jsonexporter/json-exporter/pkg/selfmetrics"
	"github.com/jsonexporter/json-exporter/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	exitOK          = 0
	exitConfigError = 2
	exitRuntime     = 1
)

var (
	envPrefix = "JSON_EXPORTER"

	cfgPath       string
	baseURL       string
	listenAddr    string
	scrapeTimeout time.Duration
	fetchTimeout  time.Duration
	logLevel      string
	otelEndpoint  string
)

var rootCmd = &cobra.Command{
	Use:   "json-exporter CONFIG_PATH",
	Short: "Poll JSON HTTP endpoints and expose selected fields as Prometheus metrics",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		cfgPath = args[0]
		run()
	},
}

func initLogger() {
	if env := os.Getenv("LOG"); env != "" {
		logLevel = env
	}
	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		ll = log.InfoLevel
	}
	log.SetLevel(ll)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, PadLevelText: true, DisableQuote: true})
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		_ = v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix))
		if !f.Changed && v.IsSet(f.Name) {
			_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func initFlags() {
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "base URL prepended to every endpoint path (required)")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "0.0.0.0:9114", "address the exporter's own HTTP server listens on")
	rootCmd.Flags().DurationVar(&scrapeTimeout, "scrape-timeout", 30*time.Second, "maximum duration of a whole /metrics scrape")
	rootCmd.Flags().DurationVar(&fetchTimeout, "fetch-timeout", 30*time.Second, "maximum duration of a single upstream fetch")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warning, error")
	rootCmd.Flags().StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP/HTTP endpoint for traces and metrics (disabled if empty)")

	cobra.OnInitialize(func() {
		v := viper.New()
		v.SetEnvPrefix(envPrefix)
		v.AutomaticEnv()
		bindFlags(rootCmd, v)
		initLogger()
	})
}

func main() {
	initFlags()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(exitRuntime)
	}
}

func loadConfig(path string) (*compile.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := config.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return compile.Compile(cfg)
}

func dumpConfig(cfg *compile.Config) {
	j := jsoniter.ConfigCompatibleWithStandardLibrary
	b, err := j.MarshalIndent(cfg, "", "  ")
	if err != nil {
		log.WithError(err).Debug("could not render configuration for logging")
		return
	}
	log.Debugf("compiled configuration:\n%s", string(b))
}

func run() {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		os.Exit(exitConfigError)
	}
	dumpConfig(cfg)

	if baseURL == "" {
		log.Error("--base-url is required")
		os.Exit(exitConfigError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(ctx, otelEndpoint)
	if err != nil {
		log.WithError(err).Error("failed to set up telemetry")
		os.Exit(exitRuntime)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	client, err := httpfetch.New(nil, baseURL)
	if err != nil {
		log.WithError(err).Error("invalid base URL")
		os.Exit(exitConfigError)
	}

	reg := prometheus.NewRegistry()
	metrics := selfmetrics.New(reg)
	sched := scheduler.New(cfg, client, fetchTimeout, metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		scrapeCtx, cancel := context.WithTimeout(r.Context(), scrapeTimeout)
		defer cancel()
		samples := sched.Scrape(scrapeCtx)
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		if err := expose.Write(w, samples); err != nil {
			log.WithError(err).Error("failed to encode metrics response")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>json-exporter</title></head><body><h1>json-exporter</h1><p><a href="/metrics">Metrics</a></p></body></html>`))
	})

	healthHandler := health.NewHandler(cfg)
	mux.HandleFunc("/live", healthHandler.LiveEndpoint)
	mux.HandleFunc("/ready", healthHandler.ReadyEndpoint)

	server := &http.Server{Addr: listenAddr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", listenAddr).Info("starting json-exporter")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("server stopped unexpectedly")
		os.Exit(exitRuntime)
	}
	os.Exit(exitOK)
}
