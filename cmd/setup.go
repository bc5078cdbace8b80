package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/config"
	"github.com/masaha03/chatgpt-app/internal/llm"
	"github.com/masaha03/chatgpt-app/internal/mirror"
	"github.com/masaha03/chatgpt-app/internal/store"
)

const logFileName = "chatgpt-app.log"

// parseLevel maps a log_level value to a slog level
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogging installs the default logger. The TUI owns the terminal, so it
// logs to a file in the data directory; other commands log to stderr and
// only show warnings unless log_level asks for more.
func setupLogging(cfg *config.Config, toFile bool) (io.Closer, error) {
	if !toFile {
		level := slog.LevelWarn
		if cfg.LogLevel != "" {
			level = parseLevel(cfg.LogLevel)
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return closerFunc(func() error { return nil }), nil
	}

	dir := cfg.DataPath()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))
	return f, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// services holds the collaborators a command needs to build a session
type services struct {
	cfg       *config.Config
	store     store.Store
	transport *llm.OpenAI
	titler    *llm.OpenAI
	mirror    *mirror.Publisher
	backend   string
}

// serviceOptions selects how the services are built
type serviceOptions struct {
	provider  string
	model     string
	backend   string
	ephemeral bool
	mirror    bool
	// needKey warns when the provider has no API key configured
	needKey bool
}

func newServices(cfg *config.Config, opts serviceOptions) (*services, error) {
	provider := opts.provider
	if provider == "" {
		provider = cfg.Provider()
	}
	model := opts.model
	if model == "" {
		model = cfg.Model()
	}

	logger := slog.Default().With("component", "transport", "provider", provider)
	transport, err := llm.NewProvider(provider, model)
	if err != nil {
		return nil, err
	}
	transport.WithLogger(logger)
	if opts.needKey && transport.APIKey == "" && provider != "litellm" {
		slog.Warn("no API key configured", "provider", provider)
	}

	titler, err := llm.NewProvider(provider, cfg.TitleModelName())
	if err != nil {
		return nil, err
	}
	titler.WithLogger(logger)

	var st store.Store
	backend := opts.backend
	if backend == "" {
		backend = cfg.StoreBackend()
	}
	if opts.ephemeral {
		st = store.NewMemory()
		backend = "memory"
	} else {
		st, err = store.Open(backend, cfg.DataPath())
		if err != nil {
			return nil, err
		}
	}

	rt := &services{cfg: cfg, store: st, transport: transport, titler: titler, backend: backend}

	if opts.mirror && cfg.NATSURL != "" {
		pub, err := mirror.Connect(mirror.DefaultConfig(cfg.NATSURL))
		if err != nil {
			// the session works without a mirror
			slog.Warn("conversation mirror disabled", "error", err)
		} else {
			rt.mirror = pub
		}
	}
	return rt, nil
}

// session builds a chat session over the services
func (rt *services) session(opts ...chat.Option) (*chat.Session, error) {
	base := []chat.Option{
		chat.WithSystemPrompt(rt.cfg.SystemPromptText()),
		chat.WithTitleTransport(rt.titler),
		chat.WithLogger(slog.Default()),
	}
	if rt.mirror != nil {
		base = append(base, chat.WithObserver(rt.mirror.Observer()))
	}
	return chat.NewSession(rt.transport, rt.store, append(base, opts...)...)
}

func (rt *services) Close() error {
	var errs []error
	if rt.mirror != nil {
		errs = append(errs, rt.mirror.Close())
	}
	errs = append(errs, rt.store.Close())
	return errors.Join(errs...)
}

// resolveConversation finds the conversation whose id starts with prefix
func resolveConversation(list []chat.Conversation, prefix string) (chat.Conversation, error) {
	var found []chat.Conversation
	for _, c := range list {
		if c.ID == prefix {
			return c, nil
		}
		if strings.HasPrefix(c.ID, prefix) {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return chat.Conversation{}, fmt.Errorf("%w: %s", chat.ErrConversationNotFound, prefix)
	case 1:
		return found[0], nil
	}
	return chat.Conversation{}, fmt.Errorf("id prefix %q matches %d conversations", prefix, len(found))
}
