package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eventscout-hub/event-discovery/api"
	"github.com/eventscout-hub/event-discovery/classify"
	"github.com/eventscout-hub/event-discovery/common"
	"github.com/eventscout-hub/event-discovery/llm"
	"github.com/eventscout-hub/event-discovery/orchestrator"
	"github.com/eventscout-hub/event-discovery/progress"
	"github.com/eventscout-hub/event-discovery/rategate"
	"github.com/eventscout-hub/event-discovery/scrape"
	"github.com/eventscout-hub/event-discovery/search"
	"github.com/eventscout-hub/event-discovery/state"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "event-discovery",
	Short: "City event discovery service",
	Long:  "Discovers upcoming local events for a city and interest set by searching, scraping and classifying public event listings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP discovery server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// loadConfig layers defaults, .env and environment variables via viper.
func loadConfig() common.DiscoveryConfig {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := common.DefaultConfig()
	viper.SetDefault("listen_addr", cfg.ListenAddr)
	viper.SetDefault("storage_provider", cfg.StorageProvider)
	viper.SetDefault("completion_model", cfg.CompletionModel)
	viper.SetDefault("run_budget", cfg.RunBudget)
	viper.SetDefault("page_workers", cfg.PageWorkers)

	cfg.ListenAddr = viper.GetString("listen_addr")
	cfg.StorageProvider = viper.GetString("storage_provider")
	cfg.DatabaseURL = viper.GetString("database_url")
	cfg.BraveAPIKey = viper.GetString("brave_search_api_key")
	cfg.AnthropicAPIKey = viper.GetString("anthropic_api_key")
	cfg.CompletionModel = viper.GetString("completion_model")
	cfg.RunBudget = viper.GetDuration("run_budget")
	cfg.PageWorkers = viper.GetInt("page_workers")
	return cfg
}

func serve() error {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := loadConfig()

	storeCfg := state.Config{Provider: cfg.StorageProvider}
	if cfg.StorageProvider == "postgres" {
		storeCfg.Postgres = &state.PostgresConfig{DSN: cfg.DatabaseURL}
	}
	store, err := state.NewStoreFactory().Create(storeCfg)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info().Str("provider", cfg.StorageProvider).Msg("Store initialized")

	braveClient, err := search.NewBraveClient(cfg.BraveAPIKey)
	if err != nil {
		return err
	}
	llmClient, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.CompletionModel)
	if err != nil {
		return err
	}

	gate := rategate.New(cfg.MinCallInterval, cfg.Cooldown)
	fetcher := scrape.NewFetcher()
	keywords := scrape.NewKeywordClassifier()
	tracker := progress.NewTracker()

	orch := orchestrator.NewOrchestrator(cfg, orchestrator.Deps{
		Store:        store,
		Sites:        braveClient,
		Links:        scrape.NewLinkExtractor(fetcher, cfg.MaxLinks),
		Pages:        scrape.NewPageExtractor(fetcher, keywords),
		Ledger:       scrape.NewVisitedLedger(cfg.VisitedRetention),
		Validator:    classify.NewValidator(gate, llmClient, keywords, cfg.FallbackRaw),
		Consolidator: classify.NewConsolidator(gate, llmClient),
		Suggester:    orchestrator.NewSiteSuggester(gate, llmClient),
		Tracker:      tracker,
	})

	server := api.NewServer(cfg.ListenAddr, orch, store, tracker)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
