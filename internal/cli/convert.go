package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	convsvc "picklist_converter/internal/conversion/service"
	"picklist_converter/internal/conversion/transport"
)

// NewConvertCommand creates the convert command.
func NewConvertCommand(opts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "convert [picklist-id...]",
		Short: "Convert picklists into quotations",
		Long: `Convert the given picklists, or every pending picklist with --all.

Picklists that are archived, locked or already converted are skipped.
The command exits 1 when any picklist failed.

Examples:
  picklistctl convert 1001 1002
  picklistctl convert --all --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return NewExitError(ExitCommandError, "pass picklist ids or --all, not both")
			}
			return runConvert(cmd, opts, args, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "convert every pending picklist")
	return cmd
}

func runConvert(cmd *cobra.Command, opts *RootOptions, args []string, all bool) error {
	ctx := cmd.Context()

	var ids []int64
	if !all {
		var err error
		if ids, err = parseIDs(args); err != nil {
			return err
		}
	}

	s, err := opts.session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var result convsvc.BatchResult
	if all {
		result, err = s.Engine.ConvertPending(ctx)
	} else {
		result, err = s.Engine.ConvertBatch(ctx, ids)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "conversion did not start", err)
	}

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), transport.ToBatchResponse(result)); err != nil {
			return err
		}
	} else {
		printBatch(cmd.OutOrStdout(), result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d picklist(s) failed", result.Failed))
	}
	return nil
}

func printBatch(w io.Writer, r convsvc.BatchResult) {
	fmt.Fprintf(w, "converted: %d  failed: %d  skipped: %d\n", r.Converted, r.Failed, r.Skipped)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  picklist %d: %s\n", e.PicklistID, e.Message)
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check picklist-id...",
		Short: "Report products missing from the catalog without writing anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			check, err := s.Engine.CheckProducts(cmd.Context(), ids)
			if err != nil {
				return WrapExitError(ExitCommandError, "product check failed", err)
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), transport.ToProductCheckResponse(check))
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "products: %d  missing: %d  can copy: %d  truly missing: %d\n",
				check.TotalProducts, check.MissingCount, check.CanCopyCount, check.TrulyMissingCount)
			for _, m := range check.Missing {
				fmt.Fprintf(w, "  picklist %d  %-20s %-30s x%d  %s\n", m.PicklistID, m.Barcode, m.Name, m.Quantity, m.Reason)
			}
			return nil
		},
	}
}

// NewCopyCommand creates the copy command.
func NewCopyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "copy barcode...",
		Short: "Copy products from the inventory database into the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.Engine.CopyFromSecondary(cmd.Context(), args)
			if err != nil {
				return WrapExitError(ExitCommandError, "copy failed", err)
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), transport.ToCopyProductsResponse(result))
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "copied: %d  existing: %d  failed: %d\n", len(result.Copied), len(result.Existing), len(result.Failed))
			for _, f := range result.Failed {
				fmt.Fprintf(w, "  %s: %s\n", f.Barcode, f.Reason)
			}
			return nil
		},
	}
}
