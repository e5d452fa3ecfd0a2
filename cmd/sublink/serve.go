package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/provolone8305/sublink-worker/internal/httpapi"
	"github.com/provolone8305/sublink-worker/internal/store"
)

const purgeInterval = time.Hour

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.String("listen", "", "HTTP 监听地址")
	f.Duration("read-header-timeout", 0, "HTTP ReadHeaderTimeout（请求头读取超时）")
	f.Duration("convert-timeout", 0, "单次转换的总超时（包含远程拉取）")
	f.Duration("fetch-timeout", 0, "单次远程拉取的超时（每个 URL 一次请求）")
	f.Duration("shutdown-timeout", 0, "收到退出信号后的优雅退出等待时间")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	cfg, log := a.cfg, a.log

	st, err := store.Open(cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer st.Close()

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Server.Listen,
		Handler: httpapi.NewHandlerWithOptions(httpapi.Options{
			ConvertTimeout: cfg.Server.ConvertTimeout,
			FetchTimeout:   cfg.Server.FetchTimeout,
			Store:          st,
			Catalog:        catalog,
			RuleSets:       cfg.RuleSetOptions(),
			Auto:           cfg.AutoOptions(),
			Selection:      cfg.Build.Categories,
			Lang:           cfg.Build.Language,
			Logger:         log,
		}),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeLoop(ctx, st, log)

	log.Info("listening", zap.String("addr", "http://"+cfg.Server.Listen), zap.String("db", cfg.Database.Path))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			log.Warn("graceful shutdown failed", zap.Error(err))
			_ = srv.Close()
		}

		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// purgeLoop drops expired entries (stored base configs) until ctx ends.
func purgeLoop(ctx context.Context, st *store.Store, log *zap.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		if _, err := st.Purge(ctx); err != nil && ctx.Err() == nil {
			log.Warn("purge expired entries failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
