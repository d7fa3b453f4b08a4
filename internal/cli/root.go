// Package cli implements the bdedit command line.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/beads"
	"github.com/fancypantalons/bdedit/internal/command"
	"github.com/fancypantalons/bdedit/internal/config"
	"github.com/fancypantalons/bdedit/internal/db"
	"github.com/fancypantalons/bdedit/internal/document"
	"github.com/fancypantalons/bdedit/internal/logging"
	"github.com/fancypantalons/bdedit/internal/output"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type contextKey string

const (
	dbKey     contextKey = "db"
	cfgKey    contextKey = "cfg"
	clientKey contextKey = "client"
	loggerKey contextKey = "logger"
)

// CmdError wraps an error with a machine-readable error code for structured output.
type CmdError struct {
	Err  error
	Code output.ErrorCode
}

func (e *CmdError) Error() string { return e.Err.Error() }

func (e *CmdError) Unwrap() error { return e.Err }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

var rootCmd = &cobra.Command{
	Use:   "bdedit",
	Short: "Edit beads issues as Markdown documents",
	Long: `bdedit renders a beads issue as a Markdown document with front-matter,
opens it in your editor, and turns your edits into the bd commands that
apply them.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve()
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger := logging.New(os.Stderr, logging.Options{Verbose: verbose, JSON: jsonMode})

		client := beads.NewClient(beads.Options{
			Command: cfg.BDCommand,
			WorkDir: cfg.WorkDir,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})

		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)
		ctx = context.WithValue(ctx, loggerKey, logger)
		ctx = context.WithValue(ctx, clientKey, client)

		if _, ok := cmd.Annotations["skipDB"]; ok {
			cmd.SetContext(ctx)
			return nil
		}

		if err := cfg.EnsureDir(); err != nil {
			return fmt.Errorf("preparing state directory: %w", err)
		}
		conn, err := db.OpenAndMigrate(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("opened database", "path", cfg.DBPath)

		cmd.SetContext(context.WithValue(ctx, dbKey, conn))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		conn, ok := cmd.Context().Value(dbKey).(*sql.DB)
		if ok && conn != nil {
			return conn.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every bd invocation")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Apply without asking for confirmation")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func getWriter(cmd *cobra.Command) *output.Writer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	return output.New(jsonMode, quietMode)
}

func getCfg(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey).(*config.Config)
	return cfg
}

func getDB(cmd *cobra.Command) *sql.DB {
	conn, _ := cmd.Context().Value(dbKey).(*sql.DB)
	return conn
}

func getClient(cmd *cobra.Command) *beads.Client {
	client, _ := cmd.Context().Value(clientKey).(*beads.Client)
	return client
}

func getLogger(cmd *cobra.Command) *log.Logger {
	logger, ok := cmd.Context().Value(loggerKey).(*log.Logger)
	if !ok {
		return logging.Discard()
	}
	return logger
}

// applyFailure is the JSON detail attached to a failed apply run.
type applyFailure struct {
	FailedIndex   int    `json:"failed_index"`
	Total         int    `json:"total"`
	Applied       int    `json:"applied"`
	FailedCommand string `json:"failed_command"`
	ExitCode      *int   `json:"exit_code,omitempty"`
	Stderr        string `json:"stderr,omitempty"`
}

// subprocessFailure is the JSON detail attached to a failed bd invocation.
type subprocessFailure struct {
	Args     []string `json:"args"`
	ExitCode int      `json:"exit_code"`
	Stderr   string   `json:"stderr,omitempty"`
}

// classifyError maps an error to its machine-readable code and any
// structured details worth reporting.
func classifyError(err error) (output.ErrorCode, any) {
	var (
		ce    *CmdError
		aerr  *beads.ApplyError
		serr  *beads.SubprocessError
		dverr *document.ValidationError
		dterr *document.TranscriptionError
		cverr *command.ValidationError
	)

	switch {
	case errors.As(err, &ce):
		_, details := classifyError(ce.Err)
		return ce.Code, details
	case errors.As(err, &aerr):
		d := applyFailure{
			FailedIndex:   aerr.Index,
			Total:         aerr.Total,
			Applied:       aerr.Applied(),
			FailedCommand: aerr.Command.String(),
		}
		if errors.As(aerr.Err, &serr) {
			code := serr.ExitCode
			d.ExitCode = &code
			d.Stderr = serr.Stderr
		}
		return output.ErrSubprocess, d
	case errors.As(err, &serr):
		return output.ErrSubprocess, subprocessFailure{Args: serr.Args, ExitCode: serr.ExitCode, Stderr: serr.Stderr}
	case errors.Is(err, beads.ErrNotFound), errors.Is(err, db.ErrNotFound):
		return output.ErrNotFound, nil
	case errors.Is(err, beads.ErrJSONOutput):
		return output.ErrSubprocess, nil
	case errors.As(err, &dverr), errors.As(err, &dterr), errors.As(err, &cverr),
		errors.Is(err, command.ErrPreviousParentUnknown):
		return output.ErrValidation, nil
	default:
		return output.ErrGeneral, nil
	}
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		jsonMode, _ := rootCmd.PersistentFlags().GetBool("json")
		quietMode, _ := rootCmd.PersistentFlags().GetBool("quiet")
		w := output.New(jsonMode, quietMode)

		code, details := classifyError(err)
		return w.ErrorWithDetails(err, code, details)
	}
	return 0
}
