package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/LdDl/proximity"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Serve incremental updates for configuration feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		registry := prometheus.NewRegistry()
		metrics, err := proximity.NewMetrics(registry)
		if err != nil {
			return errors.Wrap(err, "Can't register metrics")
		}
		eng, err := prepareEngine(ctx, cfg, metrics)
		if err != nil {
			return err
		}
		opts, err := updateOptions(cfg, metrics)
		if err != nil {
			return err
		}
		session, err := proximity.NewSession(eng.base, eng.catalogue, opts)
		if err != nil {
			return err
		}

		push := proximity.NewPushSource()
		source, err := newSource(cfg.Source, push)
		if err != nil {
			return err
		}
		publisher, err := proximity.NewFilePublisher(cfg.Output.Dir)
		if err != nil {
			return err
		}

		if cfg.Server.Addr != "" {
			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           newRouter(metrics, push, session),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				zap.L().Info("http server listening", zap.String("addr", cfg.Server.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					zap.L().Error("http server failed", zap.Error(err))
					stop()
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		zap.L().Info("listening for grid updates", zap.String("source", cfg.Source.Kind), zap.Duration("interval", cfg.Source.Interval))
		return session.Listen(ctx, source, proximity.MultiPublisher{publisher, proximity.LogPublisher{}}, cfg.Source.Interval)
	},
}

func newSource(sc SourceConfig, push *proximity.PushSource) (proximity.ConfigurationSource, error) {
	retry := proximity.WithRetry(sc.Attempts, 200*time.Millisecond)
	switch strings.ToLower(sc.Kind) {
	case "file":
		if sc.File == "" {
			return nil, errors.New("source.file is required for file source")
		}
		return proximity.NewFileSource(sc.File), nil
	case "cityio":
		if sc.TableURL == "" {
			return nil, errors.New("source.table_url is required for cityio source")
		}
		return proximity.NewCityIOSource(strings.TrimRight(sc.TableURL, "/"), retry), nil
	case "http":
		if sc.HashURL == "" || sc.DataURL == "" {
			return nil, errors.New("source.hash_url and source.data_url are required for http source")
		}
		return proximity.NewHTTPSource(sc.HashURL, sc.DataURL, retry), nil
	case "push":
		return push, nil
	default:
		return nil, errors.Errorf("Unknown source kind '%s'", sc.Kind)
	}
}

func newRouter(metrics *proximity.Metrics, push *proximity.PushSource, session *proximity.Session) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Gatherer(), promhttp.HandlerOpts{}))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/access", func(w http.ResponseWriter, r *http.Request) {
		b, err := session.Current().MarshalGeoJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(b)
	})
	r.Get("/indicators", func(w http.ResponseWriter, r *http.Request) {
		b, err := session.Current().MarshalIndicators()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	})
	push.Routes(r)
	return r
}
