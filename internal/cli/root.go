// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
	"github.com/jeranaias/quranchat-tui/internal/config"
	"github.com/jeranaias/quranchat-tui/internal/credentials"
	"github.com/jeranaias/quranchat-tui/internal/logging"
	"github.com/jeranaias/quranchat-tui/internal/render"
	"github.com/jeranaias/quranchat-tui/internal/session"
	"github.com/jeranaias/quranchat-tui/internal/storage"
)

// Version information, set at build time with -ldflags.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Exit codes.
const (
	ExitOK           = 0
	ExitError        = 1
	ExitUsage        = 2
	ExitUnauthorized = 3
	ExitNotFound     = 4
)

// =============================================================================
// APP STATE
// =============================================================================

// app carries what every command needs. It is filled by the root command's
// PersistentPreRunE once flags are parsed.
type app struct {
	// flags
	configPath string
	serverURL  string
	logLevel   string
	jsonOut    bool

	command  string
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	creds    *credentials.Store
	client   *chatapi.Client
	renderer *render.Renderer
}

// annotLogFile marks commands that own the terminal and log to the log file.
const annotLogFile = "logfile"

func (a *app) setup(cmd *cobra.Command) error {
	a.command = cmd.CommandPath()

	var cfg *config.Config
	var err error
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.ResolvePaths(); err != nil {
		return err
	}
	if a.serverURL != "" {
		cfg.Server.URL = a.serverURL
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	// Line-mode commands log to stderr only when asked to. Interactive ones
	// own the terminal and always log to the file.
	logOpts := logging.Options{Level: cfg.Log.Level}
	switch {
	case cmd.Annotations[annotLogFile] != "":
		logOpts.File = cfg.Log.File
	case a.logLevel != "":
		logOpts.Stderr = cmd.ErrOrStderr()
	}
	logger, closeLog, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	a.logger = logger
	a.closeLog = closeLog

	a.creds = credentials.NewStore(credentials.Options{
		Path:     cfg.Auth.TokenFile,
		Override: cfg.Auth.Token,
		Logger:   logger.Named("credentials"),
	})
	a.client = chatapi.NewClient(cfg.Server.URL, a.creds).
		WithTimeout(cfg.Timeout()).
		WithMaxRetries(cfg.Server.MaxRetries).
		WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst).
		WithUserAgent("quranchat/" + Version).
		WithLogger(logger.Named("chatapi"))
	a.renderer = render.New(render.Options{
		ScriptRatioThreshold: cfg.Render.ScriptRatioThreshold,
		InlineScriptMax:      cfg.Render.InlineScriptMax,
	})

	logger.Debug("command starting",
		zap.String("command", a.command),
		zap.String("server", cfg.Server.URL))
	return nil
}

func (a *app) close() error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}

// openArchive opens the transcript archive, or returns nil when it is
// disabled. Failing to open it is logged, not fatal.
func (a *app) openArchive() *storage.Archive {
	if !a.cfg.Storage.ArchiveEnabled {
		return nil
	}
	archive, err := storage.Open(a.cfg.Storage.ArchivePath)
	if err != nil {
		a.logger.Warn("archive unavailable", zap.String("path", a.cfg.Storage.ArchivePath), zap.Error(err))
		return nil
	}
	return archive.WithLogger(a.logger.Named("archive"))
}

// controller builds a session controller on the app's client and archive.
func (a *app) controller(listener session.Listener, archive *storage.Archive, revealOn bool) *session.Controller {
	opts := session.Options{
		Service:     a.client,
		Credentials: a.creds,
		Listener:    listener,
		Logger:      a.logger.Named("session"),
		ListLimit:   a.cfg.UI.ChatListLimit,
	}
	opts.Reveal.Enabled = revealOn && a.cfg.Reveal.Enabled
	opts.Reveal.ChunkSize = a.cfg.Reveal.ChunkSize
	opts.Reveal.Interval = a.cfg.RevealInterval()
	if archive != nil {
		opts.Archive = archive
	}
	return session.New(opts)
}

// emit prints data as a JSON envelope in --json mode, or calls text.
func (a *app) emit(w io.Writer, data any, text func() error) error {
	if a.jsonOut {
		return NewJSONResponse(a.command, data).Print(w)
	}
	return text()
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "quranchat",
		Short: "Terminal client for the Quran chat service",
		Long: `quranchat asks questions about the Quran and the hadith collections and
shows the answers with Arabic passages and citations laid out for reading.

Run it without a subcommand to open the chat.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		Annotations:   map[string]string{annotLogFile: "true"},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file path (default is ~/.quranchat/config.toml)")
	pf.StringVar(&a.serverURL, "server", "", "chat service URL (overrides config)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.jsonOut, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newAskCmd(a),
		newVerseCmd(a),
		newChatCmd(a),
		newChatsCmd(a),
		newExportCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newConfigCmd(a),
		newRenderCmd(a),
		newDevserverCmd(a),
	)
	return root, a
}

// Run executes the command line and returns the process exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err == nil {
		return ExitOK
	}
	if a.jsonOut {
		_ = NewJSONErrorResponse(a.command, err).Print(stdout)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

// Execute runs the command line with the process arguments and exits.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

var errUsage = errors.New("usage")

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage), session.IsValidation(err):
		return ExitUsage
	case chatapi.IsUnauthorized(err):
		return ExitUnauthorized
	case chatapi.IsNotFound(err), errors.Is(err, storage.ErrChatNotFound):
		return ExitNotFound
	default:
		return ExitError
	}
}

// usageError marks err as a usage mistake.
func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
