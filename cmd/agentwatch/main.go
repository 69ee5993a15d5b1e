// Package main provides the agentwatch CLI for auditing what an AI agent did
// during a session.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"agentwatch/internal/config"
	"agentwatch/internal/format"
	"agentwatch/internal/model"
	"agentwatch/internal/store"
	"agentwatch/internal/view"

	"github.com/spf13/cobra"
)

var version = "dev"

const (
	exitFailure = 1
	exitUsage   = 2
)

// UsageError marks invalid command-line input.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "agentwatch: %v\n", err) //nolint:errcheck
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error returned by the root command to a process status.
func exitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &usage),
		errors.Is(err, store.ErrIndexNotFound),
		errors.Is(err, store.ErrAgentNotFound),
		errors.Is(err, store.ErrMalformedIndex):
		return exitUsage
	default:
		return exitFailure
	}
}

type rootFlags struct {
	configPath   string
	indexPath    string
	sessionKey   string
	verbose      bool
	last         int
	formatFlag   string
	forceColor   bool
	forceNoColor bool
	keepNewlines bool
	maxWidth     int
	errorsMode   string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "agentwatch <mode>... [session.jsonl...]",
		Short: "Print a filtered timeline of agent actions from a session log",
		Long: `Print a filtered timeline of agent actions from a session log.

Modes:
  exec      shell commands (toolCall "exec")
  thinking  reasoning blocks
  web       web searches (toolCall "web_search")
  fetch     URL fetches (toolCall "web_fetch")
  file      file reads, writes and edits (path only)
  all       every mode above

Paths follow the modes; '-' reads standard input. Without a path the session
file is autodetected from the session index
(~/.openclaw/agents/main/sessions/sessions.json, key "agent:main:main").`,
		Version:       version,
		Args:          validateArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(cmd, args, flags)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&flags.configPath, "config", "", "config file (env: "+config.EnvConfigPath+", default: ~/.config/agentwatch/config.yaml)")
	persistent.StringVar(&flags.indexPath, "index", "", "session index file used for autodetection")
	persistent.StringVar(&flags.sessionKey, "session-key", "", "session index key to autodetect (default: "+store.DefaultSessionKey+")")
	persistent.BoolVarP(&flags.verbose, "verbose", "v", false, "log diagnostics to stderr")

	local := cmd.Flags()
	local.IntVar(&flags.last, "last", 0, "only print the last N matching records (0 means all)")
	local.StringVar(&flags.formatFlag, "format", "text", "output format: text, table, or jsonl")
	local.BoolVar(&flags.forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	local.BoolVar(&flags.forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")
	local.BoolVar(&flags.keepNewlines, "keep-newlines", false, "print payloads with real newlines instead of escaping them")
	local.IntVar(&flags.maxWidth, "max-width", 0, "truncate payloads to N display columns (0 means no limit)")
	local.StringVar(&flags.errorsMode, "errors", config.ErrorsStderr, "malformed JSON lines: stderr or ignore")

	cmd.AddCommand(newSessionsCmd(&flags))

	return cmd
}

func validateArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return usageErrorf("at least one mode is required (valid: %s)", strings.Join(model.ValidModes(), ", "))
	}
	if !model.IsMode(args[0]) {
		return usageErrorf("unknown mode %q (valid: %s)", args[0], strings.Join(model.ValidModes(), ", "))
	}
	return nil
}

// splitArgs separates the leading mode tokens from the session paths.
func splitArgs(args []string) (modes []string, paths []string) {
	i := 0
	for i < len(args) && model.IsMode(args[i]) {
		i++
	}
	return args[:i], args[i:]
}

func runTimeline(cmd *cobra.Command, args []string, flags rootFlags) error {
	modes, paths := splitArgs(args)
	filter, err := model.ParseModes(modes)
	if err != nil {
		return &UsageError{Err: err}
	}

	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	applyTimelineFlags(cmd, &cfg, flags)

	if flags.forceColor && flags.forceNoColor {
		return usageErrorf("--color and --no-color cannot be used together")
	}
	if flags.maxWidth < 0 {
		return usageErrorf("--max-width must not be negative")
	}
	if err := cfg.Validate(); err != nil {
		return &UsageError{Err: err}
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	logger := newLogger(flags.verbose, errOut)

	var warnings io.Writer
	if strings.ToLower(cfg.Errors) == config.ErrorsStderr {
		warnings = errOut
	}

	_, err = view.Run(view.Options{
		Paths:  paths,
		Locate: store.LocateOptions{IndexPath: cfg.IndexPath, SessionKey: cfg.SessionKey},
		Filter: filter,
		Last:   cfg.Last,
		Format: cfg.Format,
		Style: format.Style{
			Color:        format.ResolveColor(cfg.Color, out),
			KeepNewlines: cfg.KeepNewlines,
			MaxWidth:     cfg.MaxWidth,
			TableWidth:   format.TerminalWidth(out),
		},
		Stdin:    cmd.InOrStdin(),
		Out:      out,
		Warnings: warnings,
		Logger:   logger,
	})
	if err != nil {
		if isLocatorError(err) {
			return fmt.Errorf("%w (pass a session file path explicitly)", err)
		}
		return err
	}
	return nil
}

// loadConfig reads the config file and applies the persistent flags the
// user set on top of it.
func loadConfig(cmd *cobra.Command, flags rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("index") {
		cfg.IndexPath = flags.indexPath
	}
	if changed("session-key") {
		cfg.SessionKey = flags.sessionKey
	}
	return cfg, nil
}

// applyTimelineFlags overrides config values with explicitly set root flags.
func applyTimelineFlags(cmd *cobra.Command, cfg *config.Config, flags rootFlags) {
	changed := cmd.Flags().Changed
	if changed("last") {
		cfg.Last = flags.last
	}
	if changed("format") {
		cfg.Format = flags.formatFlag
	}
	if changed("keep-newlines") {
		cfg.KeepNewlines = flags.keepNewlines
	}
	if changed("max-width") {
		cfg.MaxWidth = flags.maxWidth
	}
	if changed("errors") {
		cfg.Errors = flags.errorsMode
	}
	switch {
	case flags.forceColor:
		cfg.Color = config.ColorAlways
	case flags.forceNoColor:
		cfg.Color = config.ColorNever
	}
}

func isLocatorError(err error) bool {
	return errors.Is(err, store.ErrIndexNotFound) ||
		errors.Is(err, store.ErrAgentNotFound) ||
		errors.Is(err, store.ErrMalformedIndex)
}

// newLogger returns a text logger on w; debug output only when verbose.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newSessionsCmd(root *rootFlags) *cobra.Command {
	var (
		formatFlag string
		noHeader   bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the entries of the session index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *root)
			if err != nil {
				return err
			}
			indexPath := cfg.IndexPath
			if indexPath == "" {
				indexPath = store.DefaultIndexPath()
			}

			logger := newLogger(root.verbose, cmd.ErrOrStderr())
			logger.Debug("reading session index", "path", indexPath)

			index, err := store.ReadIndex(indexPath)
			if err != nil {
				return err
			}

			entries, warnings := store.Entries(index)
			errs := cmd.ErrOrStderr()
			for _, warn := range warnings {
				fmt.Fprintf(errs, "warning: %v\n", warn) //nolint:errcheck
			}

			return format.WriteSessions(cmd.OutOrStdout(), entries, !noHeader, strings.ToLower(formatFlag))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for table and plain output")

	return cmd
}
