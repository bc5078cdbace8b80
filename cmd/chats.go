package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/config"
	"github.com/masaha03/chatgpt-app/internal/llm"
	"github.com/masaha03/chatgpt-app/internal/mirror"
	"github.com/masaha03/chatgpt-app/internal/store"
	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

var (
	showJSONFlag bool
	showRawFlag  bool
)

var chatsCmd = &cobra.Command{
	Use:     "chats",
	Aliases: []string{"chat", "c"},
	Short:   "Manage stored conversations",
	Long: `Manage stored conversations without starting the TUI.

Conversations are addressed by id or by a unique id prefix.

Examples:
  chatgpt chats list
  chatgpt chats show 3f2a
  chatgpt chats delete 3f2a
  chatgpt chats watch             # follow every conversation over NATS`,
}

var chatsListCmd = &cobra.Command{
	Use:          "list",
	Aliases:      []string{"ls"},
	Short:        "List conversations",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runChatsList,
}

var chatsShowCmd = &cobra.Command{
	Use:          "show <id>",
	Short:        "Print a conversation",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runChatsShow,
}

var chatsNewCmd = &cobra.Command{
	Use:          "new",
	Short:        "Create an empty conversation and print its id",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runChatsNew,
}

var chatsDeleteCmd = &cobra.Command{
	Use:          "delete <id>",
	Aliases:      []string{"rm"},
	Short:        "Delete a conversation",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runChatsDelete,
}

var chatsWatchCmd = &cobra.Command{
	Use:   "watch [id]",
	Short: "Follow conversations mirrored to NATS",
	Long: `Follow conversations as another chatgpt process streams them.

Requires nats_url to be configured in both processes. Without an id every
conversation is followed.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runChatsWatch,
}

// loadConversations reads the stored list without starting a session
func loadConversations(cfg *config.Config) ([]chat.Conversation, string, error) {
	backend := storeFlag
	if backend == "" {
		backend = cfg.StoreBackend()
	}
	st, err := store.Open(backend, cfg.DataPath())
	if err != nil {
		return nil, "", err
	}
	defer st.Close()

	stored, err := st.Load(context.Background())
	if err != nil {
		return nil, "", err
	}
	if len(stored) == 0 {
		return nil, store.Path(backend, cfg.DataPath()), nil
	}
	list, err := chat.Normalize(stored, cfg.SystemPromptText())
	if err != nil {
		return nil, "", err
	}
	return list, store.Path(backend, cfg.DataPath()), nil
}

func runChatsList(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if _, err := setupLogging(cfg, false); err != nil {
		return err
	}

	list, path, err := loadConversations(cfg)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tCREATED")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", shortID(c.ID), c.Title, len(c.Messages), c.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d conversations in %s\n", len(list), path)
	return nil
}

func runChatsShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if _, err := setupLogging(cfg, false); err != nil {
		return err
	}

	list, _, err := loadConversations(cfg)
	if err != nil {
		return err
	}
	conv, err := resolveConversation(list, args[0])
	if err != nil {
		return err
	}

	if showJSONFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(conv)
	}

	text := formatTranscript(conv)
	if showRawFlag {
		fmt.Print(text)
		return nil
	}

	theme.Set(cfg.Theme)
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.GlamourStyle()),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(text)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// formatTranscript renders a conversation as a markdown document
func formatTranscript(c chat.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Title)
	for _, m := range c.Messages {
		fmt.Fprintf(&b, "**%s**\n\n%s\n\n", roleLabel(m.Role), m.Content)
	}
	return b.String()
}

func roleLabel(role string) string {
	switch role {
	case llm.RoleSystem:
		return "System"
	case llm.RoleUser:
		return "You"
	default:
		return "ChatGPT"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runChatsNew(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if _, err := setupLogging(cfg, false); err != nil {
		return err
	}

	svc, err := newServices(cfg, serviceOptions{provider: providerFlag, model: modelFlag, backend: storeFlag, mirror: true})
	if err != nil {
		return err
	}
	defer svc.Close()

	session, err := svc.session()
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Println(session.CreateNewChat().ID)
	return nil
}

func runChatsDelete(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if _, err := setupLogging(cfg, false); err != nil {
		return err
	}

	svc, err := newServices(cfg, serviceOptions{provider: providerFlag, model: modelFlag, backend: storeFlag, mirror: true})
	if err != nil {
		return err
	}
	defer svc.Close()

	session, err := svc.session()
	if err != nil {
		return err
	}
	defer session.Close()

	conv, err := resolveConversation(session.Conversations(), args[0])
	if err != nil {
		return err
	}
	if err := session.DeleteChat(conv.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s (%s).\n", shortID(conv.ID), conv.Title)
	return nil
}

func runChatsWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if _, err := setupLogging(cfg, false); err != nil {
		return err
	}
	if cfg.NATSURL == "" {
		return fmt.Errorf("nats_url is not configured (use 'chatgpt config set nats_url <url>')")
	}

	id := ""
	if len(args) == 1 {
		id = args[0]
	}

	w, err := mirror.Watch(mirror.DefaultConfig(cfg.NATSURL))
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := newWatchPrinter(os.Stdout)
	h := mirror.Handlers{Conversation: p.Conversation}
	if id == "" {
		h.List = p.List
	}
	fmt.Fprintf(os.Stderr, "Watching %s (ctrl+c to stop)\n", cfg.NATSURL)
	return w.Run(ctx, id, h)
}

// progress tracks how much of a conversation has been printed
type progress struct {
	count   int // messages printed in full
	partial int // bytes printed of message count
	err     string
}

// watchPrinter prints mirrored conversations incrementally, so a streaming
// reply appears as it grows
type watchPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	current string
	seen    map[string]*progress

	cyan, green, yellow, gray, red *color.Color
}

func newWatchPrinter(out io.Writer) *watchPrinter {
	return &watchPrinter{
		out:    out,
		seen:   make(map[string]*progress),
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		gray:   color.New(color.FgHiBlack),
		red:    color.New(color.FgRed),
	}
}

func (p *watchPrinter) label(role string) *color.Color {
	switch role {
	case llm.RoleUser:
		return p.yellow
	case llm.RoleAssistant:
		return p.green
	}
	return p.gray
}

// Conversation prints the part of u not printed yet
func (p *watchPrinter) Conversation(u mirror.ConversationUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pr, ok := p.seen[u.ConversationID]
	if !ok {
		pr = &progress{}
		p.seen[u.ConversationID] = pr
	}

	rewound := len(u.Messages) < pr.count ||
		(pr.partial > 0 && (len(u.Messages) <= pr.count || len(u.Messages[pr.count].Content) < pr.partial))
	if rewound {
		*pr = progress{}
		p.gray.Fprintf(p.out, "\n-- %s (%s) was edited --\n", u.Title, shortID(u.ConversationID))
		p.current = ""
	}

	if len(u.Messages) > pr.count && p.current != u.ConversationID {
		if pr.partial > 0 {
			// the header interrupts a reply; restart it on a fresh line
			pr.partial = 0
		}
		p.cyan.Fprintf(p.out, "\n== %s (%s) ==\n", u.Title, shortID(u.ConversationID))
		p.current = u.ConversationID
	}

	for i := pr.count; i < len(u.Messages); i++ {
		m := u.Messages[i]
		if pr.partial == 0 {
			p.label(m.Role).Fprintf(p.out, "\n[%s]\n", roleLabel(m.Role))
		}
		fmt.Fprint(p.out, m.Content[pr.partial:])

		last := i == len(u.Messages)-1
		if last && u.Running && m.Role == llm.RoleAssistant {
			pr.partial = len(m.Content)
			break
		}
		fmt.Fprintln(p.out)
		pr.count = i + 1
		pr.partial = 0
	}

	if u.ErrorMessage != pr.err {
		pr.err = u.ErrorMessage
		if u.ErrorMessage != "" {
			p.red.Fprintf(p.out, "\n! %s\n", u.ErrorMessage)
		}
	}
}

// List prints a one-line summary of the conversation list
func (p *watchPrinter) List(u mirror.ListUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	active := ""
	for _, c := range u.Conversations {
		if c.ID == u.ActiveID {
			active = c.Title
		}
	}
	p.gray.Fprintf(p.out, "\n-- %d chats, active: %s --\n", len(u.Conversations), active)
	p.current = ""
}

func init() {
	chatsShowCmd.Flags().BoolVar(&showJSONFlag, "json", false, "Print the conversation as JSON")
	chatsShowCmd.Flags().BoolVar(&showRawFlag, "raw", false, "Print markdown without rendering")

	chatsCmd.AddCommand(chatsListCmd)
	chatsCmd.AddCommand(chatsShowCmd)
	chatsCmd.AddCommand(chatsNewCmd)
	chatsCmd.AddCommand(chatsDeleteCmd)
	chatsCmd.AddCommand(chatsWatchCmd)
	rootCmd.AddCommand(chatsCmd)
}
