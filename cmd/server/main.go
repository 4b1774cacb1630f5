package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"contract-assistant/internal/assistant"
	"contract-assistant/internal/chunker"
	"contract-assistant/internal/config"
	"contract-assistant/internal/embedding"
	"contract-assistant/internal/guardrail"
	"contract-assistant/internal/llmservice"
	"contract-assistant/internal/loader"
	"contract-assistant/internal/server"
	"contract-assistant/internal/session"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	port := flag.Int("port", 0, "Listen port (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log.Debug().Interface("rag", cfg.RAG).Int("port", cfg.Server.Port).Msg("Loaded config")

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	guard, err := guardrail.New(&cfg.Guardrail)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing guardrail")
	}

	completer, err := llmservice.New(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat model")
	}

	svc := assistant.New(
		loader.FileLoader{},
		chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder,
		guard,
		completer,
		session.NewStore(),
		cfg.RAG.TopK,
	)

	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
	handler := server.NewHandler(svc, timeout)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.SetupRoutes(handler),
		ReadTimeout:  timeout + 10*time.Second,
		WriteTimeout: timeout + 10*time.Second,
		IdleTimeout:  time.Minute,
	}

	log.Info().Str("addr", srv.Addr).Msg("Contract assistant listening")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
