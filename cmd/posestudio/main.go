// posestudio はキャラクター画像と手描きのポーズから新しい画像を生成する HTTP サーバーです。
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/gemini-pose-studio/pkg/generator"
	"github.com/shouni/gemini-pose-studio/pkg/server"
	"github.com/shouni/gemini-pose-studio/pkg/source"
	"github.com/shouni/gemini-pose-studio/pkg/studio"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(cfg.newLogger(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("サーバーが異常終了しました", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	backend, err := generator.NewGenAIBackend(ctx, cfg.apiKey)
	if err != nil {
		return err
	}
	gen, err := generator.NewPoseGenerator(backend, generator.Config{
		Model:             cfg.model,
		Seed:              cfg.seed,
		CompressReference: cfg.compressReference,
	})
	if err != nil {
		return err
	}

	// gs:// の読み込みは GCS の認証設定が必要なため、このバイナリでは無効にしています。
	loader := source.NewLoader(httpkit.New(cfg.fetchTimeout), nil, cfg.maxUploadBytes)
	ctrl, err := studio.New(gen, loader, studio.Options{MaxReferenceEdge: cfg.maxReferenceEdge})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           server.New(ctrl).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("サーバーを起動しました", "addr", cfg.addr, "model", cfg.model)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("シャットダウンしています")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
