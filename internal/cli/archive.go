package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"picklist_converter/internal/conversion/transport"
)

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(opts *RootOptions) *cobra.Command {
	var (
		by   string
		list bool
	)

	cmd := &cobra.Command{
		Use:   "archive [picklist-id...]",
		Short: "Hide picklists from conversion, or list archived picklists with --list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list == (len(args) > 0) {
				return NewExitError(ExitCommandError, "pass picklist ids or --list, not both")
			}

			var ids []int64
			if !list {
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

			if list {
				archived, err := s.Engine.ListArchived(cmd.Context(), 0, 0)
				if err != nil {
					return WrapExitError(ExitCommandError, "archive query failed", err)
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), transport.ToArchivedResponse(archived))
				}
				for _, a := range archived {
					fmt.Fprintf(cmd.OutOrStdout(), "picklist %-8d %s  %s\n", a.PicklistID, a.ArchivedAt.Format("2006-01-02 15:04:05"), a.ArchivedBy)
				}
				return nil
			}

			n, err := s.Engine.Archive(cmd.Context(), ids, by)
			if err != nil {
				return WrapExitError(ExitCommandError, "archive failed", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), transport.CountResponse{Count: int64(n)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived %d picklist(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&by, "by", "cli", "operator name stored with the archive entry")
	cmd.Flags().BoolVar(&list, "list", false, "list archived picklists")
	return cmd
}

// NewUnarchiveCommand creates the unarchive command.
func NewUnarchiveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unarchive picklist-id...",
		Short: "Make archived picklists eligible for conversion again",
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

			n, err := s.Engine.Unarchive(cmd.Context(), ids)
			if err != nil {
				return WrapExitError(ExitCommandError, "unarchive failed", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), transport.CountResponse{Count: n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unarchived %d picklist(s)\n", n)
			return nil
		},
	}
}
