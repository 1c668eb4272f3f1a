package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/lendlog/internal/adapter/http/dto"
)

var (
	baseURL  string
	timeout  time.Duration
	userID   string
	token    string
	raw      bool
	jsonOut  bool
	currency string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lendlog-cli",
		Short:         "lendlog CLI tool",
		Long:          `A command line interface for interacting with the lendlog API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", envOr("LENDLOG_URL", "http://localhost:8080"), "Base URL of the lendlog API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("LENDLOG_USER"), "User ID sent as X-User-ID when no token is given")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("LENDLOG_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().BoolVar(&raw, "raw", false, "Print plain markdown instead of styled output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print the raw JSON response")

	rootCmd.AddCommand(
		ledgersCmd(),
		balancesCmd(),
		portfolioCmd(),
		ratesCmd(),
		addCmd(),
		transitionCmd("approve", "Approve an entry recorded by the other party"),
		transitionCmd("reject", "Reject an entry recorded by the other party"),
		transitionCmd("resend", "Send your rejected entry back for approval"),
	)

	return rootCmd
}

func client() *apiClient {
	return newAPIClient(baseURL, userID, token, timeout)
}

func ledgersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledgers",
		Short: "List your ledgers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledgers, err := client().ledgers(cmd.Context())
			if err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), ledgers, func() (string, error) { return ledgersMarkdown(ledgers) })
		},
	}
}

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances <ledger-id>",
		Short: "Show net balances for one ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := client().balances(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), b, func() (string, error) { return balancesMarkdown(b) })
		},
	}
}

func portfolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show balances across all your ledgers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := client().portfolio(cmd.Context(), strings.ToUpper(currency))
			if err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), p, func() (string, error) { return portfolioMarkdown(p) })
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "Convert totals into this currency")
	return cmd
}

func ratesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Show current exchange rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := client().rates(cmd.Context())
			if err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), r, func() (string, error) { return ratesMarkdown(r) })
		},
	}
}

func addCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "add <ledger-id> <lent|borrowed> <amount> <currency>",
		Short: "Record a new entry",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := client().addEntry(cmd.Context(), dto.CreateEntryRequest{
				LedgerID: args[0],
				Type:     strings.ToLower(args[1]),
				Amount:   args[2],
				Currency: strings.ToUpper(args[3]),
				Note:     note,
			})
			if err != nil {
				return err
			}
			return showEntry(cmd.OutOrStdout(), e)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Free-text note")
	return cmd
}

func transitionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <entry-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := client().transition(cmd.Context(), args[0], action)
			if err != nil {
				return err
			}
			return showEntry(cmd.OutOrStdout(), e)
		},
	}
}

func showEntry(w io.Writer, e *dto.EntryResponse) error {
	if jsonOut {
		return printJSON(w, e)
	}
	_, err := fmt.Fprintf(w, "%s  %s %s  %s\n", e.ID, e.Type, e.Formatted, e.Status)
	return err
}

func show(w io.Writer, v any, markdown func() (string, error)) error {
	if jsonOut {
		return printJSON(w, v)
	}
	md, err := markdown()
	if err != nil {
		return err
	}
	out, err := display(md, raw)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
