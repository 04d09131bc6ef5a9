// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianVerdict/services/judge/engine"
	"github.com/AleutianAI/AleutianVerdict/services/judge/middleware"
	"github.com/AleutianAI/AleutianVerdict/services/judge/observability"
	"github.com/AleutianAI/AleutianVerdict/services/judge/routes"
	"github.com/AleutianAI/AleutianVerdict/services/judge/storage"
	"github.com/AleutianAI/AleutianVerdict/services/llm"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

// envOr reads an env var, trimming quotes and whitespace Podman sometimes
// passes literally, falling back to def when unset.
func envOr(key, def string) string {
	v := strings.Trim(os.Getenv(key), "\"' ")
	if v == "" {
		return def
	}
	return v
}

// initTracer wires the OTLP gRPC exporter. Tracing is optional: when no
// collector endpoint is configured the service runs without it.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if otelEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("judge-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := envOr("JUDGE_PORT", "12230")

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	// Env is read once, here; everything downstream takes explicit config.
	llmCfg := llm.Config{
		DefaultProvider: envOr("DEFAULT_PROVIDER", ""),
		OpenAIKey:       envOr("OPENAI_API_KEY", ""),
		OpenAIModel:     envOr("OPENAI_MODEL", ""),
		AnthropicKey:    envOr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", ""),
		AllowOffline:    envOr("ALLOW_OFFLINE_WHEN_NO_KEYS", "true") != "false",
	}
	if !llmCfg.HasKeys() {
		if llmCfg.AllowOffline {
			slog.Warn("No provider API keys configured, running with the offline generator")
		} else {
			slog.Warn("No provider API keys configured and offline substitution disabled; runs will fail")
		}
	}
	router := llm.NewRouter(llmCfg)

	var store storage.Store
	if dataDir := envOr("JUDGE_DATA_DIR", ""); dataDir != "" {
		badgerStore, err := storage.NewBadgerStore(storage.DefaultConfig(dataDir))
		if err != nil {
			log.Fatalf("failed to open run store at %s: %v", dataDir, err)
		}
		defer badgerStore.Close()
		store = badgerStore
		slog.Info("Run persistence enabled", "dir", dataDir)
	} else {
		store = storage.DisabledStore{}
		slog.Info("JUDGE_DATA_DIR not set, run persistence disabled")
	}

	pipeline := engine.NewPipeline(router, store)

	ginRouter := gin.Default()
	ginRouter.Use(otelgin.Middleware("judge-service"))
	ginRouter.Use(middleware.Identity())

	routes.SetupRoutes(ginRouter, pipeline)

	log.Println("Starting the judge server on port ", port)
	if err := ginRouter.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
