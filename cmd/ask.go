package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/config"
	"github.com/masaha03/chatgpt-app/internal/llm"
	"github.com/masaha03/chatgpt-app/internal/prompts"
)

var (
	askChatFlag     string
	askContinueFlag bool
	askPromptFlag   string
)

var askCmd = &cobra.Command{
	Use:   "ask [message...]",
	Short: "Send one message and stream the reply to stdout",
	Long: `Send one message and stream the reply to stdout.

The message is read from the arguments, or from stdin when none are given.
A new conversation is started unless --chat or --continue is used.

Examples:
  chatgpt ask "What is a goroutine?"
  git diff | chatgpt ask --prompt reviewer
  chatgpt ask --continue "And a channel?"`,
	SilenceUsage: true,
	RunE:         runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	text, err := askText(args, os.Stdin)
	if err != nil {
		return err
	}

	cfg := config.Get()
	if _, err := setupLogging(cfg, false); err != nil {
		return err
	}

	svc, err := newServices(cfg, serviceOptions{
		provider:  providerFlag,
		model:     modelFlag,
		backend:   storeFlag,
		ephemeral: ephemeralFlag,
		mirror:    true,
		needKey:   true,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	printer := &streamPrinter{out: os.Stdout}
	session, err := svc.session(chat.WithObserver(printer.Observe))
	if err != nil {
		return err
	}
	defer session.Close()

	switch {
	case askChatFlag != "":
		conv, err := resolveConversation(session.Conversations(), askChatFlag)
		if err != nil {
			return err
		}
		if err := session.SetActive(conv.ID); err != nil {
			return err
		}
	case askContinueFlag:
		// the stored active conversation is the first one
	default:
		if len(session.Messages()) > 1 {
			session.CreateNewChat()
		}
	}

	if askPromptFlag != "" {
		presets := prompts.NewRegistry(config.GetPromptPaths())
		if err := presets.Refresh(); err != nil {
			return err
		}
		preset, err := presets.Get(askPromptFlag)
		if err != nil {
			return err
		}
		if err := session.Send(context.Background(), preset.Prompt, 0); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	printer.expect(session.ActiveID(), len(session.Messages())+1)
	if err := session.Send(ctx, text); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout)

	if msg := session.ErrorMessage(); msg != "" {
		return errors.New(msg)
	}
	if ctx.Err() == nil {
		// let the title of a new conversation land in the store
		session.Wait()
	}
	return nil
}

// askText joins the arguments, falling back to piped stdin
func askText(args []string, stdin io.Reader) (string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" && stdin != nil {
		if f, ok := stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			return "", errors.New("no message given")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		return "", errors.New("no message given")
	}
	return text, nil
}

// streamPrinter writes the growing reply at one message index of one
// conversation, printing each delta once
type streamPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	id      string
	index   int
	printed int
}

// expect selects the message to print
func (p *streamPrinter) expect(id string, index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = id
	p.index = index
	p.printed = 0
}

// Observe is a chat.Observer
func (p *streamPrinter) Observe(snap chat.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.id == "" {
		return
	}
	for _, c := range snap.Conversations {
		if c.ID != p.id {
			continue
		}
		if len(c.Messages) <= p.index {
			return
		}
		m := c.Messages[p.index]
		if m.Role != llm.RoleAssistant || len(m.Content) <= p.printed {
			return
		}
		fmt.Fprint(p.out, m.Content[p.printed:])
		p.printed = len(m.Content)
		return
	}
}

func init() {
	askCmd.Flags().StringVar(&askChatFlag, "chat", "", "Continue the conversation with this id (or id prefix)")
	askCmd.Flags().BoolVarP(&askContinueFlag, "continue", "c", false, "Continue the most recent conversation")
	askCmd.Flags().StringVar(&askPromptFlag, "prompt", "", "System prompt preset for the conversation")
	rootCmd.AddCommand(askCmd)
}
