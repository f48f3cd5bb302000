// Package cli implements picklistctl, the operator command line for the
// conversion engine.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"picklist_converter/internal/bootstrap"
	catalogsvc "picklist_converter/internal/catalog/service"
	convsvc "picklist_converter/internal/conversion/service"
	ledger "picklist_converter/internal/ledger/repository"
	settingstransport "picklist_converter/internal/settings/transport"
	"picklist_converter/platform/config"
	"picklist_converter/platform/logger"
)

// Engine is the conversion surface the CLI drives.
type Engine interface {
	ConvertBatch(ctx context.Context, ids []int64) (convsvc.BatchResult, error)
	ConvertPending(ctx context.Context) (convsvc.BatchResult, error)
	CheckProducts(ctx context.Context, ids []int64) (convsvc.ProductCheck, error)
	CopyFromSecondary(ctx context.Context, barcodes []string) (catalogsvc.CopyResult, error)
	History(ctx context.Context, filter ledger.Filter, limit, offset int) ([]ledger.Record, int, error)
	DeleteRecords(ctx context.Context, recordIDs []int64) (int64, error)
	DeleteAllFailed(ctx context.Context) (int64, error)
	Overview(ctx context.Context) (convsvc.Overview, error)
	Archive(ctx context.Context, ids []int64, archivedBy string) (int, error)
	Unarchive(ctx context.Context, ids []int64) (int64, error)
	ListArchived(ctx context.Context, limit, offset int) ([]ledger.ArchivedPicklist, error)
}

// SettingsEditor reads and saves the quotation defaults.
type SettingsEditor interface {
	Describe(ctx context.Context) (settingstransport.QuotationDefaultsResponse, error)
	Update(ctx context.Context, req settingstransport.UpdateQuotationDefaultsRequest) (settingstransport.QuotationDefaultsResponse, error)
}

// Session is an opened runtime for one command invocation.
type Session struct {
	Engine   Engine
	Settings SettingsEditor
	Close    func()
}

// Opener connects to the stores. Tests replace it with fakes.
type Opener func(ctx context.Context) (*Session, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
	Open   Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the picklistctl root command. A nil opener
// connects using the environment configuration.
func NewRootCommand(open Opener) *cobra.Command {
	if open == nil {
		open = openFromEnv
	}
	opts := &RootOptions{Open: open}

	cmd := &cobra.Command{
		Use:   "picklistctl",
		Short: "Convert picklists into quotations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewCopyCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewArchiveCommand(opts))
	cmd.AddCommand(NewUnarchiveCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// session opens the runtime or wraps the failure with ExitCommandError.
func (o *RootOptions) session(ctx context.Context) (*Session, error) {
	s, err := o.Open(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open stores", err)
	}
	return s, nil
}

func openFromEnv(ctx context.Context) (*Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Diagnostics go to stderr so json output stays parseable.
	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	rt, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Session{
		Engine:   rt.Conversion,
		Settings: rt.Settings.Service(),
		Close:    rt.Close,
	}, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid picklist id %q", arg))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
