package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/gemini-pose-studio/pkg/generator"
)

// config はフラグと環境変数から解決された起動設定です。
type config struct {
	addr              string
	apiKey            string
	model             string
	seed              *int64
	compressReference bool
	maxReferenceEdge  int
	fetchTimeout      time.Duration
	maxUploadBytes    int64
	logLevel          slog.Level
	logFormat         string
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// resolveAPIKeyFromEnv は GEMINI_API_KEY > GOOGLE_API_KEY > API_KEY の順で API キーを探します。
func resolveAPIKeyFromEnv() string {
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"} {
		if v := os.Getenv(key); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseConfig はコマンドライン引数と環境変数を解析します。優先順位はフラグ > 環境変数 > 既定値です。
func parseConfig(args []string, stderr io.Writer) (config, error) {
	var (
		cfg       config
		seed      string
		logLevel  string
		compress  bool
		maxEdge   int
		timeout   time.Duration
		maxUpload int64
		err       error
	)

	if compress, err = strconv.ParseBool(getEnv("POSE_STUDIO_COMPRESS_REFERENCE", "false")); err != nil {
		return cfg, fmt.Errorf("POSE_STUDIO_COMPRESS_REFERENCE: %w", err)
	}
	if maxEdge, err = strconv.Atoi(getEnv("POSE_STUDIO_MAX_REFERENCE_EDGE", "2048")); err != nil {
		return cfg, fmt.Errorf("POSE_STUDIO_MAX_REFERENCE_EDGE: %w", err)
	}
	if timeout, err = time.ParseDuration(getEnv("POSE_STUDIO_FETCH_TIMEOUT", "30s")); err != nil {
		return cfg, fmt.Errorf("POSE_STUDIO_FETCH_TIMEOUT: %w", err)
	}
	if maxUpload, err = strconv.ParseInt(getEnv("POSE_STUDIO_MAX_UPLOAD_BYTES", strconv.Itoa(10<<20)), 10, 64); err != nil {
		return cfg, fmt.Errorf("POSE_STUDIO_MAX_UPLOAD_BYTES: %w", err)
	}

	fs := flag.NewFlagSet("posestudio", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.addr, "addr", getEnv("POSE_STUDIO_ADDR", ":8080"), "Listen address (env POSE_STUDIO_ADDR)")
	fs.StringVar(&cfg.apiKey, "api-key", resolveAPIKeyFromEnv(), "Gemini API key (env GEMINI_API_KEY; falls back to GOOGLE_API_KEY, API_KEY)")
	fs.StringVar(&cfg.model, "model", getEnv("POSE_STUDIO_MODEL", generator.DefaultModel), "Image generation model (env POSE_STUDIO_MODEL)")
	fs.StringVar(&seed, "seed", getEnv("POSE_STUDIO_SEED", ""), "Fixed generation seed; empty for random (env POSE_STUDIO_SEED)")
	fs.BoolVar(&cfg.compressReference, "compress-reference", compress, "Send the character image as JPEG (env POSE_STUDIO_COMPRESS_REFERENCE)")
	fs.IntVar(&cfg.maxReferenceEdge, "max-reference-edge", maxEdge, "Downscale character images whose longer edge exceeds this; 0 disables (env POSE_STUDIO_MAX_REFERENCE_EDGE)")
	fs.DurationVar(&cfg.fetchTimeout, "fetch-timeout", timeout, "Timeout for remote character images (env POSE_STUDIO_FETCH_TIMEOUT)")
	fs.Int64Var(&cfg.maxUploadBytes, "max-upload-bytes", maxUpload, "Maximum character image size in bytes (env POSE_STUDIO_MAX_UPLOAD_BYTES)")
	fs.StringVar(&logLevel, "log-level", getEnv("POSE_STUDIO_LOG_LEVEL", "info"), "debug, info, warn or error (env POSE_STUDIO_LOG_LEVEL)")
	fs.StringVar(&cfg.logFormat, "log-format", getEnv("POSE_STUDIO_LOG_FORMAT", "text"), "text or json (env POSE_STUDIO_LOG_FORMAT)")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if seed != "" {
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid -seed %q: %w", seed, err)
		}
		cfg.seed = &v
	}
	if err := cfg.logLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return cfg, fmt.Errorf("invalid -log-level %q: %w", logLevel, err)
	}
	switch cfg.logFormat {
	case "text", "json":
	default:
		return cfg, fmt.Errorf("invalid -log-format %q: want text or json", cfg.logFormat)
	}
	if cfg.apiKey == "" {
		return cfg, fmt.Errorf("API key is required (-api-key or GEMINI_API_KEY)")
	}
	if cfg.maxReferenceEdge < 0 {
		return cfg, fmt.Errorf("-max-reference-edge must not be negative")
	}
	return cfg, nil
}

func (c config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.logLevel}
	if c.logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
