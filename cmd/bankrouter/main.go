// Command bankrouter is the CLI entrypoint: a debug mode for routing a
// single utterance from the command line, and a server mode that serves
// the HTTP facade, mirroring the teacher's cmd/main.go flag-driven
// dual-mode shape and its signal-based graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/txplain/bankrouter/internal/api"
	"github.com/txplain/bankrouter/internal/cache"
	"github.com/txplain/bankrouter/internal/config"
	"github.com/txplain/bankrouter/internal/faqindex"
	"github.com/txplain/bankrouter/internal/handler"
	"github.com/txplain/bankrouter/internal/llmclient"
	"github.com/txplain/bankrouter/internal/logging"
	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/registry"
	"github.com/txplain/bankrouter/internal/router"
	"github.com/txplain/bankrouter/internal/session"
	"github.com/txplain/bankrouter/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)

	var (
		utterance   = flag.String("utterance", "", "route a single utterance and print the decision, then exit")
		sessionID   = flag.String("session", "debug-session", "session id to use in -utterance debug mode")
		serve       = flag.Bool("serve", true, "run the HTTP server")
		showVersion = flag.Bool("version", false, "show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("bankrouter v1.0.0")
		os.Exit(0)
	}

	ctx := context.Background()

	localCache, err := cache.NewRistrettoCache("bankrouter")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build local cache")
	}

	rawProductStore, err := buildProductStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build product store")
	}
	productStore := store.NewCachedStore(rawProductStore, localCache)
	faqIndex := faqindex.NewCachedIndex(faqindex.NewInMemoryIndex(nil), localCache)

	sessions, err := buildSessionStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build session store")
	}
	defer sessions.Close()

	var distLock *redsync.Mutex
	if cfg.RedisURL != "" {
		opts, err := goredislib.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to parse redis url")
		}
		client := goredislib.NewClient(opts)
		pool := goredis.NewPool(client)
		distLock = redsync.New(pool).NewMutex("bankrouter:registry-refresh")
	}

	reg := registry.New(productStore, cfg.RegistryRefreshInterval, logger, distLock)
	reg.StartBackgroundRefresh(ctx)

	rc := router.NewContext(productStore, faqIndex, reg, sessions, logger,
		cfg.FAQSimilarityThreshold, cfg.EvidenceDeadline, cfg.RequestDeadline)
	rc.GreetingSet = cfg.GreetingSet
	rt := router.New(rc)

	synth, err := buildSynthesizer(cfg, localCache)
	if err != nil {
		logger.Warn().Err(err).Msg("llm synthesis disabled: failed to build client")
	}

	if *utterance != "" {
		runDebug(ctx, rt, synth, *sessionID, *utterance)
		return
	}

	if *serve {
		runServer(cfg, rt, synth, logger)
	}
}

// buildSynthesizer builds a post-routing LLM synthesizer, or returns a
// nil *handler.Synthesizer when no API key is configured — synthesis is
// strictly optional (spec.md §1's language-model client is an external
// collaborator), never required to serve a routing decision.
func buildSynthesizer(cfg *config.Config, c cache.Cache) (*handler.Synthesizer, error) {
	if cfg.LLMAPIKey == "" {
		return nil, nil
	}
	base, err := llmclient.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	retrying := llmclient.NewRetryingClient(base, llmclient.DefaultRetryConfig())
	return handler.New(retrying, c), nil
}

func runDebug(ctx context.Context, rt *router.Router, synth *handler.Synthesizer, sessionID, utterance string) {
	decision := rt.Route(ctx, models.RouteRequest{
		SessionID: sessionID,
		Utterance: utterance,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	resp := decision.ToResponse()
	if synth != nil && !decision.IsClarify() {
		synth.Annotate(ctx, decision, &resp)
	}
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
}

func runServer(cfg *config.Config, rt *router.Router, synth *handler.Synthesizer, logger zerolog.Logger) {
	srv := api.NewServer(cfg.HTTPAddr, rt, logger)
	if synth != nil {
		srv = srv.WithSynthesizer(synth)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("api server failed")
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Error().Err(err).Msg("error during shutdown")
		}
	}
}

func buildProductStore(ctx context.Context, cfg *config.Config) (store.ProductStore, error) {
	if cfg.ProductStoreDSN == "" {
		return store.NewInMemoryStore(nil), nil
	}
	return store.NewPgStore(ctx, cfg.ProductStoreDSN)
}

func buildSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.RedisURL == "" {
		return session.NewInMemoryStore(cfg.SessionTTL), nil
	}
	return session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
}
