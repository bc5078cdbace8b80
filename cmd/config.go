package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/masaha03/chatgpt-app/internal/config"
)

// configKey documents one settable key. name is the key as ListKeys reports
// it; short is the alias most people type.
type configKey struct {
	group string
	name  string
	short string
	help  string
}

var configGroups = []string{"provider", "chat", "store", "mirror", "display"}

var configKeys = []configKey{
	{"provider", "openai_api_key", "openai", "OpenAI API key (or OPENAI_API_KEY)"},
	{"provider", "openrouter_api_key", "openrouter", "OpenRouter API key (or OPENROUTER_API_KEY)"},
	{"provider", "litellm_api_key", "litellm", "LiteLLM API key, optional"},
	{"provider", "litellm_url", "", "LiteLLM base URL (default: " + config.DefaultLiteLLMURL + ")"},
	{"provider", "default_provider", "provider", "openai, openrouter or litellm"},
	{"chat", "default_model", "model", "Chat model (default: " + config.DefaultModel + ")"},
	{"chat", "title_model", "", "Model that titles new chats (default: " + config.DefaultTitleModel + ")"},
	{"chat", "system_prompt", "", "System prompt of new chats"},
	{"store", "store", "", "json or sqlite"},
	{"store", "data_dir", "", "Directory for conversations and logs"},
	{"mirror", "nats_url", "nats", "NATS server that mirrors conversations"},
	{"display", "log_level", "", "debug, info, warn or error"},
	{"display", "theme", "", "dark or light"},
}

// lookupKey resolves a key or its short alias
func lookupKey(key string) (configKey, bool) {
	key = strings.ToLower(key)
	for _, k := range configKeys {
		if k.name == key || (k.short != "" && k.short == key) {
			return k, true
		}
	}
	return configKey{}, false
}

// keyHelp lists the settable keys grouped by concern
func keyHelp() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, g := range configGroups {
		fmt.Fprintf(w, "%s:\n", strings.ToUpper(g[:1])+g[1:])
		for _, k := range configKeys {
			if k.group != g {
				continue
			}
			name := k.name
			if k.short != "" {
				name = k.short + " (" + k.name + ")"
			}
			fmt.Fprintf(w, "  %s\t%s\n", name, k.help)
		}
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// writeConfig prints the configured values under their group, skipping
// groups with nothing set
func writeConfig(out io.Writer, values map[string]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, g := range configGroups {
		header := false
		for _, k := range configKeys {
			v, ok := values[k.name]
			if k.group != g || !ok {
				continue
			}
			if !header {
				fmt.Fprintf(w, "[%s]\n", g)
				header = true
			}
			fmt.Fprintf(w, "  %s\t%s\n", k.name, v)
		}
	}
	_ = w.Flush()
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Show or change settings stored in the config file.

Without a subcommand the configured values are listed by concern. API keys
are masked; values coming from the environment are marked (env).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config file: %s\n\n", config.ConfigPath())
		values := config.ListKeys()
		if len(values) == 0 {
			fmt.Println("Nothing configured; defaults apply.")
			fmt.Println("Try 'chatgpt config set openai <key>'.")
			return
		}
		writeConfig(os.Stdout, values)
	},
}

var configSetCmd = &cobra.Command{
	Use:          "set <key> <value>",
	Short:        "Set a value",
	Long:         "Set a value. Multiple words are joined, so system prompts need no quoting.\n\n" + keyHelp(),
	Args:         cobra.MinimumNArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, ok := lookupKey(args[0])
		if !ok {
			return fmt.Errorf("unknown key %q (see 'chatgpt config set --help')", args[0])
		}
		if err := config.Set(k.name, strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Printf("%s updated.\n", k.name)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:          "get <key>",
	Short:        "Print one value",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, ok := lookupKey(args[0])
		if !ok {
			return fmt.Errorf("unknown key %q", args[0])
		}
		if v, set := config.ListKeys()[k.name]; set {
			fmt.Println(v)
		} else {
			fmt.Printf("%s is not set\n", k.name)
		}
		return nil
	},
}

var configDeleteCmd = &cobra.Command{
	Use:          "delete <key>",
	Aliases:      []string{"remove", "unset"},
	Short:        "Remove a value so its default applies",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, ok := lookupKey(args[0])
		if !ok {
			return fmt.Errorf("unknown key %q", args[0])
		}
		if err := config.Delete(k.name); err != nil {
			return err
		}
		fmt.Printf("%s removed.\n", k.name)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file and data directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "config\t%s\n", config.ConfigPath())
		fmt.Fprintf(w, "data\t%s\n", config.Get().DataPath())
		_ = w.Flush()
	},
}

func init() {
	configCmd.AddCommand(configSetCmd, configGetCmd, configDeleteCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
