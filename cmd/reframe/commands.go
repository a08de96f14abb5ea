package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/reframe/internal/api"
	"github.com/kalambet/reframe/internal/config"
	"github.com/kalambet/reframe/internal/miniapp"
	"github.com/kalambet/reframe/internal/refine"
	"github.com/kalambet/reframe/internal/stats"
)

var errNoKey = errors.New("no Gemini API key stored: run `reframe key set <key>` first")

// withLocal loads config, opens local storage and runs fn against it.
func withLocal(fn func(cfg config.Config, lc *localState) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lc, err := openLocal(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := lc.Close(); err != nil {
			printWarning("closing storage: %v", err)
		}
	}()
	return fn(cfg, lc)
}

// --- key ---

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the locally stored Gemini API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Encrypt and store a Gemini API key",
	Long: `Encrypt and store a Gemini API key.

Get a key at https://aistudio.google.com/app/apikey. The key is kept
encrypted on this device and is only sent to the reframe server with
each analysis request.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocal(func(_ config.Config, lc *localState) error {
			return runKeySet(lc, args[0])
		})
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an API key is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocal(func(_ config.Config, lc *localState) error {
			runKeyStatus(cmd.OutOrStdout(), lc)
			return nil
		})
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocal(func(_ config.Config, lc *localState) error {
			if err := lc.keys.Clear(); err != nil {
				return err
			}
			printSuccess("API key cleared")
			return nil
		})
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyStatusCmd)
	keyCmd.AddCommand(keyClearCmd)
}

func runKeySet(lc *localState, key string) error {
	ok, err := lc.keys.Save(key)
	if err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	if !ok {
		return errors.New("API key cannot be empty")
	}
	printSuccess("API key saved")
	return nil
}

func runKeyStatus(w io.Writer, lc *localState) {
	key, ok := lc.keys.Load()
	if !ok {
		printStatus(w, "Gemini API key", "not set")
		return
	}
	printStatus(w, "Gemini API key", "stored (%s)", maskKey(key))
}

// maskKey keeps only the last four characters of key visible.
func maskKey(key string) string {
	r := []rune(key)
	if len(r) <= 4 {
		return strings.Repeat("•", len(r))
	}
	return strings.Repeat("•", 4) + string(r[len(r)-4:])
}

// --- analyze ---

type analyzeOptions struct {
	UseSuggestion bool
	Publish       bool
	ContextPath   string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Analyze a text and suggest a constructive rewrite",
	Long: `Analyze a text and suggest a constructive rewrite.

Examples:
  reframe analyze "You never listen to me!"
  reframe analyze --use-suggestion "Kamu tidak pernah mendengarkan aku!"
  reframe analyze --publish --context ctx.json "This is the worst update ever"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts analyzeOptions
		opts.UseSuggestion, _ = cmd.Flags().GetBool("use-suggestion")
		opts.Publish, _ = cmd.Flags().GetBool("publish")
		opts.ContextPath, _ = cmd.Flags().GetString("context")

		return withLocal(func(cfg config.Config, lc *localState) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), newAPIClient(cfg), lc, args[0], opts)
		})
	},
}

func init() {
	analyzeCmd.Flags().Bool("use-suggestion", false, "print only the suggested rewrite")
	analyzeCmd.Flags().Bool("publish", false, "use the suggestion and open the Farcaster composer with it")
	analyzeCmd.Flags().String("context", "", "mini-app context JSON file (\"-\" for stdin), required with --publish")
}

func runAnalyze(ctx context.Context, w io.Writer, client *apiClient, lc *localState, text string, opts analyzeOptions) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("enter text to analyze")
	}
	apiKey, ok := lc.keys.Load()
	if !ok {
		return errNoKey
	}

	resp, err := client.post(ctx, "/api/refine", api.RefineRequest{Text: text, APIKey: apiKey})
	if err != nil {
		return err
	}
	var res refine.Result
	if err := decodeJSON(resp, &res); err != nil {
		return err
	}

	if _, err := lc.stats.Record(res.IsNegative); err != nil {
		printWarning("could not update statistics: %v", err)
	}

	switch {
	case opts.Publish:
		return runPublish(w, res.Suggestion, opts.ContextPath)
	case opts.UseSuggestion:
		fmt.Fprintln(w, res.Suggestion)
	default:
		printResult(w, res)
	}
	return nil
}

func printResult(w io.Writer, res refine.Result) {
	badge := colorize(colorGreen, "["+res.Sentiment+"]")
	if res.IsNegative {
		badge = colorize(colorRed, "["+res.Sentiment+"]")
	}
	fmt.Fprintf(w, "%s %s\n\n", colorize(colorBold, "Analysis Result"), badge)
	fmt.Fprintf(w, "%s\n  %s\n\n", colorize(colorBold, "Reasoning"), colorize(colorItalic, "\""+res.Reasoning+"\""))
	fmt.Fprintf(w, "%s\n  %s\n", colorize(colorBold, "Suggested Rewrite:"), colorize(colorBlue, res.Suggestion))
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show or reset analysis statistics",
}

var statsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show analysis statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocal(func(_ config.Config, lc *localState) error {
			printStats(cmd.OutOrStdout(), lc.stats.Load())
			return nil
		})
	},
}

var statsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset analysis statistics to zero",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocal(func(_ config.Config, lc *localState) error {
			if err := lc.stats.Reset(); err != nil {
				return err
			}
			printSuccess("Statistics reset")
			return nil
		})
	},
}

func init() {
	statsCmd.AddCommand(statsShowCmd)
	statsCmd.AddCommand(statsResetCmd)
}

func printStats(w io.Writer, s stats.Statistics) {
	printStatus(w, "Total analyses", "%d", s.TotalAnalyses)
	printStatus(w, "Negative", "%d", s.NegativeCount)
	printStatus(w, "Positive", "%d", s.PositiveCount)
	printStatus(w, "Negative ratio", "%.0f%%", s.NegativeRatio()*100)
}

// --- publish ---

var publishCmd = &cobra.Command{
	Use:   "publish <text>",
	Short: "Open the Farcaster composer with text",
	Long: `Open the Farcaster composer with text.

The mini-app context handed over by the Farcaster client must be supplied
with --context; without it there is no Farcaster session to publish from.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contextPath, _ := cmd.Flags().GetString("context")
		embeds, _ := cmd.Flags().GetStringArray("embed")
		return runPublish(cmd.OutOrStdout(), args[0], contextPath, embeds...)
	},
}

func init() {
	publishCmd.Flags().String("context", "", "mini-app context JSON file (\"-\" for stdin)")
	publishCmd.Flags().StringArray("embed", nil, "URL to embed in the cast (repeatable, at most 2)")
}

func runPublish(w io.Writer, text, contextPath string, embeds ...string) error {
	mc, err := loadContext(contextPath)
	if err != nil {
		return err
	}

	cast, err := miniapp.Compose(mc, text, embeds...)
	if err != nil {
		if msg, ok := miniapp.UserMessage(err); ok {
			return &userError{msg: msg, err: err}
		}
		return fmt.Errorf("failed to publish to Farcaster: %w", err)
	}

	fmt.Fprintln(w, cast.URL())
	printSuccess("Successfully opened Farcaster composer! 🎉")
	return nil
}

// userError shows msg to the user while keeping err matchable with errors.Is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// loadContext reads a mini-app context from path. An empty path means the
// command is not running inside a Farcaster client.
func loadContext(path string) (*miniapp.Context, error) {
	if path == "" {
		return nil, nil
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("reading context: %w", err)
		}
		defer f.Close()
		r = f
	}

	mc, err := miniapp.ParseContext(r)
	if err != nil {
		return nil, fmt.Errorf("reading context: %w", err)
	}
	return mc, nil
}

// --- context ---

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Inspect or update a mini-app context file",
}

var contextUpdateCmd = &cobra.Command{
	Use:   "update <file>",
	Short: "Apply a host event reported by the Farcaster client",
	Long: `Apply a host event reported by the Farcaster client after the handshake
and write the context file back.

Events: ` + strings.Join(miniapp.Events(), ", ") + `

Notification details are replaced on every event, so removing the app or
disabling notifications clears them. An add reported without details is
ignored.

Examples:
  reframe context update ctx.json --event miniAppAdded --notification-url https://api.farcaster.xyz/v1/frame-notifications --notification-token tok
  reframe context update ctx.json --event notificationsDisabled
  reframe context update ctx.json --event miniAppRemoved`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		event, _ := cmd.Flags().GetString("event")
		nURL, _ := cmd.Flags().GetString("notification-url")
		nToken, _ := cmd.Flags().GetString("notification-token")

		var details *miniapp.NotificationDetails
		if nURL != "" || nToken != "" {
			if nURL == "" || nToken == "" {
				return errors.New("--notification-url and --notification-token must be given together")
			}
			details = &miniapp.NotificationDetails{URL: nURL, Token: nToken}
		}

		u, ok, err := miniapp.UpdateForEvent(event, details)
		if err != nil {
			return err
		}
		if !ok {
			printWarning("%s without notification details changes nothing", event)
			return nil
		}
		if err := runContextUpdate(args[0], u); err != nil {
			return err
		}
		printSuccess("Context updated")
		return nil
	},
}

func init() {
	contextUpdateCmd.Flags().String("event", "", "host event to apply: "+strings.Join(miniapp.Events(), ", "))
	contextUpdateCmd.Flags().String("notification-url", "", "notification endpoint issued by the client")
	contextUpdateCmd.Flags().String("notification-token", "", "notification token issued by the client")
	contextUpdateCmd.MarkFlagRequired("event")
	contextCmd.AddCommand(contextUpdateCmd)
}

func runContextUpdate(path string, u miniapp.ClientUpdate) error {
	if path == "-" {
		return errors.New("context update needs a file path")
	}
	mc, err := loadContext(path)
	if err != nil {
		return err
	}
	mc.UpdateClient(u)

	data, err := json.MarshalIndent(mc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing context: %w", err)
	}
	return nil
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Inspect or purge locally stored data",
}

var dataShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List locally stored items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocal(func(_ config.Config, lc *localState) error {
			return runDataShow(cmd.OutOrStdout(), lc)
		})
	},
}

var dataPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete the stored API key and statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL locally stored data. Use --confirm to proceed.")
			return nil
		}
		return withLocal(func(_ config.Config, lc *localState) error {
			n, err := runDataPurge(lc)
			if err != nil {
				return err
			}
			printSuccess("Purged %d item(s)", n)
			return nil
		})
	},
}

func init() {
	dataPurgeCmd.Flags().Bool("confirm", false, "confirm data purge")
	dataCmd.AddCommand(dataShowCmd)
	dataCmd.AddCommand(dataPurgeCmd)
}

// runDataShow lists item names, sizes and update times. Values are never printed.
func runDataShow(w io.Writer, lc *localState) error {
	items, err := lc.store.Items()
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}
	versions, err := lc.store.AppliedMigrations()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if len(versions) > 0 {
		printStatus(w, "Schema version", "%d", versions[len(versions)-1])
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "  (no stored data)")
		return nil
	}
	for _, it := range items {
		printStatus(w, it.Key, "%d bytes, updated %s", len(it.Value), it.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func runDataPurge(lc *localState) (int, error) {
	items, err := lc.store.Items()
	if err != nil {
		return 0, fmt.Errorf("listing items: %w", err)
	}
	for _, it := range items {
		if err := lc.store.RemoveItem(it.Key); err != nil {
			return 0, fmt.Errorf("removing %s: %w", it.Key, err)
		}
	}
	return len(items), nil
}

// --- manifest ---

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the mini-app manifest served at /.well-known/farcaster.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), manifestFor(cfg))
	},
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Valid keys: ` + strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
