package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/aggregate"
	"github.com/TobiSchelling/VoCIntel/internal/brief"
	"github.com/TobiSchelling/VoCIntel/internal/classify"
	"github.com/TobiSchelling/VoCIntel/internal/collect"
	"github.com/TobiSchelling/VoCIntel/internal/config"
	"github.com/TobiSchelling/VoCIntel/internal/demo"
	"github.com/TobiSchelling/VoCIntel/internal/llm"
	"github.com/TobiSchelling/VoCIntel/internal/logging"
	"github.com/TobiSchelling/VoCIntel/internal/pipeline"
	"github.com/TobiSchelling/VoCIntel/internal/search"
	"github.com/TobiSchelling/VoCIntel/internal/server"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

var version = "dev"

var (
	verbose    bool
	ephemeral  bool
	configPath string
	cfg        *config.Config
)

// syncLogs flushes the logger installed by PersistentPreRunE.
var syncLogs = func() {}

func main() {
	err := rootCmd.Execute()
	syncLogs()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "vocintel",
	Short:   "Voice of Customer intelligence",
	Long:    "VoCIntel classifies customer feedback and public web mentions with an LLM, rolls them up by ARR, and writes product briefs.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return setupLogging("INFO")
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			config.LoadEnv(path)
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath != "":
			return err
		default:
			config.LoadEnv("")
			cfg = config.Default()
		}

		if err := setupLogging(cfg.Logging.Level); err != nil {
			return err
		}
		if path == "" {
			zap.S().Debug("No config file found, using built-in defaults")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep data in memory only")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(briefCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(clearCmd)
}

func setupLogging(level string) error {
	sync, err := logging.Setup(level, verbose)
	if err != nil {
		return err
	}
	syncLogs = sync
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("vocintel", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/vocintel/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your product, LLM provider and search queries.")
		fmt.Printf("API keys are read from the environment or from %s\n", filepath.Join(config.ConfigDir(), ".env"))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored data and provider configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		feedback, err := s.Feedback.List(ctx)
		if err != nil {
			return err
		}
		signals, err := s.Signals.List(ctx)
		if err != nil {
			return err
		}
		briefs, err := s.Briefs.List(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Product: %s\n", cfg.Product.Name)
		fmt.Printf("Storage: %s\n\n", storageLabel(s))
		fmt.Println("Data:")
		fmt.Printf("  Feedback items: %d\n", len(feedback))
		fmt.Printf("  Web signals: %d\n", len(signals))
		fmt.Printf("  Briefs: %d\n", len(briefs))
		fmt.Printf("  Total ARR represented: %s\n", aggregate.FormatCurrency(aggregate.TotalARR(feedback)))
		fmt.Printf("  At-risk ARR: %s\n", aggregate.FormatCurrency(aggregate.AtRiskARR(feedback)))

		fmt.Println("\nProviders:")
		fmt.Printf("  LLM: %s (%s) %s\n", cfg.LLM.Provider, cfg.LLM.Model, llmState(ctx))
		fmt.Printf("  Search: %s %s\n", cfg.Search.Provider, keyState(cfg.Search.APIKeyEnv))
		return nil
	},
}

func keyState(env string) string {
	if env == "" {
		return ""
	}
	if config.APIKey(env) == "" {
		return fmt.Sprintf("[%s not set]", env)
	}
	return fmt.Sprintf("[%s set]", env)
}

// llmState reports whether the configured provider can be used. Ollama is
// probed for the model; hosted providers only need their key.
func llmState(ctx context.Context) string {
	if !strings.EqualFold(cfg.LLM.Provider, "ollama") {
		return keyState(cfg.LLM.APIKeyEnv)
	}
	p, err := llm.CreateProvider(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Sprintf("[%v]", err)
	}
	if ollama, ok := p.(*llm.OllamaProvider); ok && ollama.IsConfigured(ctx) {
		return "[model available]"
	}
	return "[not reachable or model not pulled]"
}

func storageLabel(s *store.Store) string {
	if ephemeral {
		return "memory (ephemeral)"
	}
	switch kv := s.Backend().(type) {
	case *store.SQLiteKV:
		return kv.Path()
	default:
		switch cfg.Storage.Driver {
		case "redis":
			return "redis " + cfg.Storage.RedisAddr
		default:
			return "memory"
		}
	}
}

// --- serve command ---

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		gw := newGateway(ctx)
		searcher, brave, err := newSearcher()
		if err != nil {
			return err
		}
		col := collect.NewCollector(s, gw)

		srv, err := server.New(server.Options{
			Store:       s,
			Collector:   col,
			Compiler:    brief.NewCompiler(s, gw),
			Pipeline:    pipeline.New(cfg, s, searcher, col),
			Searcher:    searcher,
			Brave:       brave,
			Product:     cfg.Product.Name,
			Presets:     pipeline.Presets(cfg),
			ResultCount: cfg.Search.ResultCount,
			Concurrency: cfg.Search.Concurrency,
		})
		if err != nil {
			return err
		}

		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		fmt.Printf("Starting server at http://%s:%d\n", host, port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.ListenAndServe(fmt.Sprintf("%s:%d", host, port))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Interface to listen on")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- data commands ---

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Replace all data with demo feedback and web signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := demo.Load(ctx, s, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d feedback items and %d web signals.\n", res.Feedback, res.Signals)
		return nil
	},
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all feedback, web signals and briefs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes && !confirm("This will delete all feedback, signals, and briefs. Continue?") {
			return errors.New("aborted")
		}
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Println("All data cleared.")
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
}

// --- wiring ---

func openStore(ctx context.Context) (*store.Store, error) {
	if ephemeral {
		return store.NewMemory(), nil
	}
	dataDir := cfg.GetDataDir()
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "sqlite" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return store.Open(ctx, store.Options{
		Driver:        cfg.Storage.Driver,
		DataDir:       dataDir,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: config.APIKey(cfg.Storage.RedisPwdEnv),
		RedisDB:       cfg.Storage.RedisDB,
		KeyPrefix:     cfg.Storage.KeyPrefix,
	})
}

// newGateway builds the classification gateway. A provider that cannot be
// created leaves the gateway without one; its calls then fail with
// classify.ErrNoProvider.
func newGateway(ctx context.Context) *classify.Gateway {
	provider, err := llm.CreateProvider(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   config.APIKey(cfg.LLM.APIKeyEnv),
		Timeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		zap.S().Warnf("LLM provider unavailable: %v", err)
		provider = nil
	}

	gw := classify.NewGateway(provider, cfg.Product.Name)
	gw.ClassifyTemperature = cfg.LLM.ClassifyTemp
	gw.BriefTemperature = cfg.LLM.BriefTemp
	gw.MaxTokens = cfg.LLM.MaxTokens
	gw.EmbedSchema = cfg.LLM.EmbedJSONSchema
	return gw
}

func newSearcher() (search.Searcher, *search.BraveClient, error) {
	feeds := make([]search.Feed, 0, len(cfg.Search.Feeds))
	for _, f := range cfg.Search.Feeds {
		feeds = append(feeds, search.Feed{Name: f.Name, URLTemplate: f.URLTemplate})
	}
	return search.New(search.Options{
		Provider:   cfg.Search.Provider,
		BaseURL:    cfg.Search.BaseURL,
		APIKey:     config.APIKey(cfg.Search.APIKeyEnv),
		Freshness:  cfg.Search.Freshness,
		SearchLang: cfg.Search.SearchLang,
		Timeout:    time.Duration(cfg.Search.TimeoutSeconds) * time.Second,
		Feeds:      feeds,
	})
}

// signalContext cancels on Ctrl+C so long LLM runs stop cleanly.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
