// Package main provides the kitlab CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kitlab/cmd/kitlab/chat"
	"kitlab/cmd/kitlab/ui"
	"kitlab/internal/backend"
	"kitlab/internal/config"
	"kitlab/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	backendURL string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// skipConfigAnnotation marks commands that must run without loading the
// existing config, so a broken file can still be replaced.
const skipConfigAnnotation = "kitlab/skip-config"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kitlab",
	Short: "kitlab - conversational kit builder",
	Long: `kitlab talks to a kit assembly service and helps you put together a kit
of products for an activity. Describe what you need, answer a few follow-up
questions, and the lab assembles a kit grouped into sections.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws, err := resolveWorkspace()
		if err != nil {
			return err
		}
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			logger = zap.NewNop()
			return nil
		}

		path := configPath
		if path == "" {
			path = config.DefaultPath(ws)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if backendURL != "" {
			loaded.Backend.BaseURL = backendURL
		}
		if timeout > 0 {
			loaded.Backend.Timeout = timeout.String()
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		if err := logging.Initialize(ws, cfg.Logging.Options()); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		logging.Boot("kitlab starting (backend=%s)", cfg.Backend.BaseURL)

		// Skip logger init for interactive mode (it has its own UI)
		if !cmd.HasParent() {
			logger = zap.NewNop()
			return nil
		}

		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch interactive chat
		return runInteractiveChat(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.kitlab/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Kit service base URL (or set KITLAB_BACKEND_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (default from config)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveWorkspace() (string, error) {
	if workspace != "" {
		return workspace, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return cwd, nil
}

func newClient() *backend.Client {
	return backend.NewClient(backend.Config{
		BaseURL:      cfg.Backend.BaseURL,
		GeneratePath: cfg.Backend.GeneratePath,
		HistoryPath:  cfg.Backend.HistoryPath,
		KitPath:      cfg.Backend.KitPath,
		APIToken:     cfg.Backend.APIToken,
		Timeout:      cfg.GetBackendTimeout(),
	})
}

func runInteractiveChat(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return chat.Run(ctx, chat.Config{
		Backend:            newClient(),
		Styles:             ui.NewStyles(ui.ThemeByName(cfg.UI.Theme)),
		ResponseDelay:      cfg.GetResponseDelay(),
		IntentKeywords:     cfg.Conversation.IntentKeywords,
		KeepStaleResponses: !cfg.Conversation.DiscardStaleResponses,
		ShowSidebar:        cfg.UI.ShowSidebar,
		SidebarWidth:       cfg.UI.SidebarWidth,
	})
}
