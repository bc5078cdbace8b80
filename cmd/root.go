package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/config"
	"github.com/masaha03/chatgpt-app/internal/prompts"
	"github.com/masaha03/chatgpt-app/internal/tui"
	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=..."
var Version = "dev"

var (
	providerFlag  string
	modelFlag     string
	storeFlag     string
	ephemeralFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "chatgpt",
	Short: "ChatGPT in your terminal",
	Long: `chatgpt is a terminal chat client for the OpenAI chat completion API.

Replies stream in as they are generated. Conversations are kept on disk,
titled automatically after the first exchange, and can be edited and
replayed from any message.

Supported providers (OpenAI-compatible):
  openai      - OpenAI API (OPENAI_API_KEY)
  openrouter  - OpenRouter (OPENROUTER_API_KEY)
  litellm     - LiteLLM proxy (litellm_url)`,
	Version: Version,
	Run:     runChat,
}

func runChat(cmd *cobra.Command, args []string) {
	cfg := config.Get()

	logFile, err := setupLogging(cfg, true)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	svc, err := newServices(cfg, serviceOptions{
		provider:  providerFlag,
		model:     modelFlag,
		backend:   storeFlag,
		ephemeral: ephemeralFlag,
		mirror:    true,
		needKey:   true,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	bridge := tui.NewBridge()
	session, err := svc.session(chat.WithObserver(bridge.Observe))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	if !theme.Set(cfg.Theme) {
		slog.Warn("unknown theme, using dark", "theme", cfg.Theme)
	}

	presets := prompts.NewRegistry(config.GetPromptPaths())
	if err := presets.Refresh(); err != nil {
		slog.Warn("failed to load prompt presets", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	go func() {
		if err := presets.Watch(ctx, nil); err != nil {
			slog.Warn("prompt presets will not reload", "error", err)
		}
	}()

	slog.Info("starting", "version", Version, "model", svc.transport.ModelName(), "store", svc.backend)

	p := tea.NewProgram(
		tui.New(ctx, session, bridge, tui.Options{
			Version:  Version,
			Model:    svc.transport.ModelName(),
			Store:    svc.backend,
			Mirrored: svc.mirror != nil,
			Presets:  presets,
		}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithoutBracketedPaste(), // avoid escape sequences leaking into the editor
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "LLM provider (openai, openrouter, litellm)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Chat model (default from config)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Conversation store (json, sqlite)")
	rootCmd.PersistentFlags().BoolVar(&ephemeralFlag, "ephemeral", false, "Keep conversations in memory only")
}
