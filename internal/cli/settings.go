package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	settingstransport "picklist_converter/internal/settings/transport"
)

// NewSettingsCommand creates the settings command with show and set subcommands.
func NewSettingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the quotation defaults",
	}
	cmd.AddCommand(newSettingsShowCommand(opts))
	cmd.AddCommand(newSettingsSetCommand(opts))
	return cmd
}

func newSettingsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved quotation defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.Settings.Describe(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "settings unavailable", err)
			}
			return printSettings(cmd.OutOrStdout(), opts.Format, resp)
		},
	}
}

func newSettingsSetCommand(opts *RootOptions) *cobra.Command {
	var req settingstransport.UpdateQuotationDefaultsRequest

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the quotation defaults",
		Long: `Save the quotation defaults used for every converted picklist.

Examples:
  picklistctl settings set --customer 42 --prefix PL --interval 120
  picklistctl settings set --customer 42 --prefix PL --secondary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.Settings.Update(cmd.Context(), req)
			if err != nil {
				return WrapExitError(ExitCommandError, "settings rejected", err)
			}
			return printSettings(cmd.OutOrStdout(), opts.Format, resp)
		},
	}

	cmd.Flags().Int64Var(&req.CustomerID, "customer", 0, "customer id for new quotations (required)")
	_ = cmd.MarkFlagRequired("customer")
	cmd.Flags().StringVar(&req.TitlePrefix, "prefix", "", "quotation title and number prefix (required)")
	_ = cmd.MarkFlagRequired("prefix")
	cmd.Flags().IntVar(&req.DefaultStatus, "status", 0, "status code for new quotations")
	cmd.Flags().IntVar(&req.PollIntervalSeconds, "interval", 0, "poll interval in seconds (min 10, default 60)")
	cmd.Flags().BoolVar(&req.SecondaryEnabled, "secondary", false, "allow copying products from the inventory database")
	return cmd
}

func printSettings(w io.Writer, format string, resp settingstransport.QuotationDefaultsResponse) error {
	if format == "json" {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "customer:  %d\n", resp.CustomerID)
	fmt.Fprintf(w, "status:    %d\n", resp.DefaultStatus)
	fmt.Fprintf(w, "prefix:    %s\n", resp.TitlePrefix)
	fmt.Fprintf(w, "interval:  %ds\n", resp.PollIntervalSeconds)
	fmt.Fprintf(w, "secondary: enabled=%t configured=%t\n", resp.SecondaryEnabled, resp.SecondaryConfigured)
	return nil
}
