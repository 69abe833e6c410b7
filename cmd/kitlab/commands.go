package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kitlab/cmd/kitlab/ui"
	"kitlab/internal/config"
	"kitlab/internal/conversation"
	"kitlab/internal/render"
	"kitlab/internal/sidebar"
)

var (
	askFormat   string
	showFormat  string
	forceConfig bool
)

// askCmd sends a single message and prints the reply
var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message to the lab and print the reply",
	Long: `Sends a single message through the conversation controller and prints the
rendered transcript. Follow-up questions are printed as a numbered list.

Example:
  kitlab ask "Find me a camping kit"
  kitlab ask --format html "Build me a beach kit" > reply.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// historyCmd lists saved kits
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved kits in the order the service returns them",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

// showCmd renders one saved kit
var showCmd = &cobra.Command{
	Use:   "show [kit-id]",
	Short: "Render a saved kit",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage kitlab configuration",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the default configuration file",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE:        runConfigInit,
}

func init() {
	askCmd.Flags().StringVar(&askFormat, "format", "term", "Output format: term or html")
	showCmd.Flags().StringVar(&showFormat, "format", "term", "Output format: term or html")
	configInitCmd.Flags().BoolVar(&forceConfig, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func formatterFor(format string) (render.Formatter, error) {
	switch strings.ToLower(format) {
	case "term", "terminal", "":
		return ui.NewTerminalFormatter(ui.NewStyles(ui.ThemeByName(cfg.UI.Theme)), 100), nil
	case "html":
		return render.HTMLFormatter{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want term or html)", format)
}

func runAsk(cmd *cobra.Command, args []string) error {
	f, err := formatterFor(askFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.GetBackendTimeout())
	defer cancel()

	message := strings.Join(args, " ")
	logger.Info("Sending message", zap.String("input", message))

	transcript := render.NewTranscript(f, nil)
	ctrl := conversation.New(newClient(), transcript, conversation.Options{
		IntentKeywords: cfg.Conversation.IntentKeywords,
	})

	sub, err := ctrl.Submit(ctx, message)
	if err != nil {
		return err
	}
	outcome, err := sub.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for reply: %w", err)
	}
	logger.Debug("Reply settled", zap.String("request_id", sub.ID), zap.Stringer("outcome", outcome))

	fmt.Fprintln(cmd.OutOrStdout(), transcript.String())
	if outcome == conversation.RequestFailed {
		return errors.New("request failed")
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.GetBackendTimeout())
	defer cancel()

	sb := sidebar.New(newClient(), render.NewTranscript(nil, nil), sidebar.Options{})
	if err := sb.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	logger.Debug("History loaded", zap.Int("entries", len(sb.Entries())))

	out := cmd.OutOrStdout()
	if sb.Empty() {
		fmt.Fprintln(out, "No saved kits yet.")
		return nil
	}
	for _, e := range sb.Entries() {
		fmt.Fprintf(out, "%s\t%s\n", e.ID, e.Label)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	f, err := formatterFor(showFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.GetBackendTimeout())
	defer cancel()

	transcript := render.NewTranscript(f, nil)
	sb := sidebar.New(newClient(), transcript, sidebar.Options{})
	if err := sb.Select(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to load kit %s: %w", args[0], err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), transcript.String())
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath(ws)
	}

	if _, err := os.Stat(path); err == nil && !forceConfig {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
