package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	convsvc "picklist_converter/internal/conversion/service"
	"picklist_converter/internal/conversion/transport"
	ledger "picklist_converter/internal/ledger/repository"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var (
		status     string
		picklistID int64
		limit      int
		offset     int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List conversion attempts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			filter := ledger.Filter{Status: ledger.Status(status), PicklistID: picklistID}
			records, total, err := s.Engine.History(cmd.Context(), filter, limit, offset)
			if err != nil {
				return WrapExitError(ExitCommandError, "history query failed", err)
			}

			if opts.Format == "json" {
				l, o := convsvc.NormalizePage(limit, offset)
				return writeJSON(cmd.OutOrStdout(), transport.ToHistoryResponse(records, total, l, o))
			}

			w := cmd.OutOrStdout()
			for _, r := range records {
				outcome := "failed"
				detail := ""
				if r.Success {
					outcome = "ok"
					if r.QuotationNumber != nil {
						detail = *r.QuotationNumber
					}
				} else if r.ErrorMessage != nil {
					detail = *r.ErrorMessage
				}
				fmt.Fprintf(w, "%6d  picklist %-8d %-6s %s  %s\n", r.ID, r.PicklistID, outcome, r.ConvertedAt.Format("2006-01-02 15:04:05"), detail)
			}
			fmt.Fprintf(w, "%d of %d record(s)\n", len(records), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "filter by outcome (all|success|failed)")
	cmd.Flags().Int64Var(&picklistID, "picklist", 0, "only records for this picklist")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default 100, max 500)")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the conversion ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			overview, err := s.Engine.Overview(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "stats query failed", err)
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), transport.ToStatsResponse(overview))
			}
			stats := overview.Stats
			fmt.Fprintf(cmd.OutOrStdout(), "converted: %d  failed: %d  attempts: %d  pending: %d\n",
				stats.TotalConverted, stats.TotalFailed, stats.TotalAttempts, overview.PendingCount)
			if !overview.Configured {
				fmt.Fprintln(cmd.OutOrStdout(), "quotation defaults are not configured; run: picklistctl settings set")
			}
			return nil
		},
	}
}

// NewPurgeCommand creates the purge command that deletes ledger records.
func NewPurgeCommand(opts *RootOptions) *cobra.Command {
	var failed bool

	cmd := &cobra.Command{
		Use:   "purge [record-id...]",
		Short: "Delete conversion records so their picklists can be converted again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if failed == (len(args) > 0) {
				return NewExitError(ExitCommandError, "pass record ids or --failed, not both")
			}

			var ids []int64
			if !failed {
				var err error
				if ids, err = parseIDs(args); err != nil {
					return err
				}
			}

			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var deleted int64
			if failed {
				deleted, err = s.Engine.DeleteAllFailed(cmd.Context())
			} else {
				deleted, err = s.Engine.DeleteRecords(cmd.Context(), ids)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "purge failed", err)
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), transport.CountResponse{Count: deleted})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d record(s)\n", deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "delete every failure record")
	return cmd
}
