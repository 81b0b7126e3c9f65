package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"dialogue-transcription-service/internal/app"
	"dialogue-transcription-service/internal/config"
	"dialogue-transcription-service/internal/events"
	apihttp "dialogue-transcription-service/internal/http"
	"dialogue-transcription-service/internal/observability"
	"dialogue-transcription-service/internal/session"
	"dialogue-transcription-service/internal/speech"
	"dialogue-transcription-service/internal/speech/google"
	"dialogue-transcription-service/internal/speech/mock"
	"dialogue-transcription-service/internal/speech/speechmatics"
	"dialogue-transcription-service/internal/token"
	"dialogue-transcription-service/internal/transcript"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicMessage: cfg.Kafka.TopicMessage,
		Principal:    cfg.Kafka.Principal,
	})
	defer publisher.Close()

	tokens := token.NewProvider(token.Config{
		Endpoint: cfg.Speech.TokenEndpoint,
		APIKey:   cfg.Speech.APIKey,
		TTL:      cfg.Speech.TokenTTL,
		Timeout:  10 * time.Second,
	})

	factory, err := adapterFactory(cfg, tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid speech provider configuration")
	}

	manager := session.NewManager(cfg.Speech.Provider, factory, transcript.Options{
		MergeWindow: cfg.Transcript.MergeWindow,
		Colors:      cfg.Transcript.Colors,
	}, publisher)

	obsServer := observability.NewServer(cfg.Service.MetricsAddr)
	obsServer.Start()

	apiServer := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      apihttp.NewRouter(application, manager, tokens),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", apiServer.Addr).Msg("API server started")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutdown signal received")

	manager.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("API server shutdown error")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown error")
	}
	application.Shutdown()
}

// adapterFactory binds the configured provider to a factory the session
// manager can call per session.
func adapterFactory(cfg *config.Configuration, tokens *token.Provider) (session.AdapterFactory, error) {
	switch cfg.Speech.Provider {
	case "mock":
		return func(ctx context.Context, language string) (speech.Adapter, error) {
			return mock.New(), nil
		}, nil

	case "speechmatics":
		return func(ctx context.Context, language string) (speech.Adapter, error) {
			smCfg := speechmatics.DefaultConfig()
			smCfg.URL = cfg.Speech.RealtimeURL
			smCfg.SampleRateHz = cfg.Speech.SampleRateHz
			if language != "" {
				smCfg.Language = language
			}

			// Short-lived keys keep the long-lived secret off the
			// recognition socket; fall back to the raw key when the
			// exchange is unavailable.
			key, err := tokens.Issue(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Key exchange unavailable, using configured key")
				key = cfg.Speech.APIKey
			}
			if key == "" {
				return nil, fmt.Errorf("speechmatics selected but no API key configured")
			}
			return speechmatics.New(key, smCfg), nil
		}, nil

	case "google":
		return func(ctx context.Context, language string) (speech.Adapter, error) {
			gCfg := google.DefaultConfig()
			gCfg.SampleRateHz = int32(cfg.Speech.SampleRateHz)
			if language != "" {
				gCfg.LanguageCode = language
			}
			return google.New(ctx, gCfg)
		}, nil

	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Speech.Provider)
	}
}
