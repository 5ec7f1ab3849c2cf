// Command sincera-enrich reads publisher identifiers from an Excel
// workbook, looks each one up against the Sincera open API under a
// strict rate limit, and writes the enriched results to a sibling
// workbook with a _results suffix.
//
// Usage: sincera-enrich <path_to_excel_file>
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/adverif/sincera-enrich/internal/xlsx"
	"github.com/adverif/sincera-enrich/pkg/batch"
	"github.com/adverif/sincera-enrich/pkg/cache"
	"github.com/adverif/sincera-enrich/pkg/logging"
	"github.com/adverif/sincera-enrich/pkg/metrics"
	"github.com/adverif/sincera-enrich/pkg/ratelimit"
	"github.com/adverif/sincera-enrich/pkg/sincera"
)

func main() {
	// Token and endpoint config may live in a local .env file.
	_ = godotenv.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "false") == "true",
		Output: os.Stderr,
	})

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: sincera-enrich <path_to_excel_file>")
		os.Exit(1)
	}

	if err := run(os.Args[1], logger); err != nil {
		logger.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

func run(inputPath string, logger zerolog.Logger) error {
	token := os.Getenv("SINCERA_API_TOKEN")
	if token == "" {
		return fmt.Errorf("SINCERA_API_TOKEN is required")
	}

	// Fail fast on unreadable input or missing identifier columns,
	// before any request is issued.
	sheet, err := xlsx.ReadRows(inputPath)
	if err != nil {
		return err
	}
	logger.Info().
		Int("rows", len(sheet.Rows)).
		Str("input", inputPath).
		Msg("Input file read")

	cfg := sincera.DefaultConfig(token)
	if baseURL := os.Getenv("SINCERA_API_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.Cache = setupCache(logger)

	client, err := sincera.New(cfg)
	if err != nil {
		return err
	}

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go serveMetrics(addr, logger)
	}

	limiter := ratelimit.New(
		getEnvInt("RATE_LIMIT_COUNT", ratelimit.DefaultMaxRequests),
		time.Duration(getEnvInt("RATE_LIMIT_PERIOD", int(ratelimit.DefaultPeriod/time.Second)))*time.Second,
		logging.NewLogger("ratelimit"),
	)

	processor := batch.NewProcessor(limiter, client, logging.NewLogger("batch"))
	results, err := processor.Process(context.Background(), sheet.Rows)
	if err != nil {
		return err
	}

	outputPath := xlsx.OutputPath(inputPath)
	if err := xlsx.WriteResults(outputPath, sheet, results); err != nil {
		return err
	}

	logger.Info().
		Int("rows", len(results)).
		Str("output", outputPath).
		Msg("Processing complete, results written")

	return nil
}

// setupCache wires the optional Redis record cache. An unreachable Redis
// disables caching and the run proceeds without it.
func setupCache(logger zerolog.Logger) *cache.Manager {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("redis", redisURL).Msg("Redis unreachable, running without cache")
		return nil
	}

	logger.Info().Str("redis", redisURL).Msg("Record cache enabled")

	ttl := time.Duration(getEnvInt("CACHE_TTL_SECONDS", int(cache.DefaultTTL/time.Second))) * time.Second
	return cache.NewManager(redisClient, ttl)
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn().Err(err).Msg("Metrics server stopped")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
