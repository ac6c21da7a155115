package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/infrastructure/providers"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print today's usage per provider",
	Run:   statusRun,
}

func init() {
	statusCmd.Flags().Int("history", 0, "also print the last N stored days per provider (sql store only)")
	statusCmd.Flags().Bool("json", false, "print the summary as JSON")
	rootCmd.AddCommand(statusCmd)
}

func statusRun(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	summary := deps.Usage.GetUsageSummary(ctx)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			logrus.Fatalf("[STATUS] %v", err)
		}
		return
	}

	printUsageSummary(out, summary, deps.Registry)

	days, _ := cmd.Flags().GetInt("history")
	if days <= 0 {
		return
	}
	if deps.History == nil {
		fmt.Fprintln(out, "\nhistory is only kept by the sql usage store")
		return
	}
	for _, p := range routing.AllProviders {
		records, err := deps.History.History(ctx, p, days)
		if err != nil {
			logrus.WithError(err).Warnf("[STATUS] Failed to read history of %s", p)
			continue
		}
		printUsageHistory(out, p, records)
	}
}

func printUsageSummary(w io.Writer, summary routing.UsageSummary, registry providers.Registry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tCONFIGURED\tUSED\tLIMIT\tREMAINING")
	for _, p := range routing.AllProviders {
		entry := summary[p]
		limit, remaining := "unlimited", "-"
		if !entry.Unlimited {
			limit = humanize.Comma(int64(entry.Limit))
			remaining = humanize.Comma(entry.Remaining)
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\n",
			p, registry.IsProviderAvailable(p), humanize.Comma(entry.Count), limit, remaining)
	}
	_ = tw.Flush()
}

func printUsageHistory(w io.Writer, p routing.Provider, records []routing.UsageRecord) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", p)
	for _, r := range records {
		fmt.Fprintf(w, "  %s  %s\n", r.Day, humanize.Comma(r.Count))
	}
}
