package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/call-insight/internal/analysis"
)

var (
	callsStatus   string
	callsCustomer int64
	callsPage     int
	callsLimit    int
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect sales calls",
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sales calls and their pipeline state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := analysis.NewQueryService(st).List(ctx, analysis.ListRequest{
			Status:     callsStatus,
			CustomerID: callsCustomer,
			Page:       callsPage,
			Limit:      callsLimit,
		})
		if err != nil {
			return err
		}

		formatCallsList(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	f := callsListCmd.Flags()
	f.StringVar(&callsStatus, "status", "", "filter by state: pending, transcribed or scored")
	f.Int64Var(&callsCustomer, "customer", 0, "filter by customer id")
	f.IntVar(&callsPage, "page", 0, "page number (default 1)")
	f.IntVar(&callsLimit, "limit", 0, "page size (default 20)")

	callsCmd.AddCommand(callsListCmd)
	rootCmd.AddCommand(callsCmd)
}

// formatCallsList renders one page of calls as an aligned table with a
// pagination footer.
func formatCallsList(out io.Writer, res *analysis.ListResult) {
	if len(res.Calls) == 0 {
		fmt.Fprintln(out, "No calls found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCUSTOMER\tSTATE\tOVERALL\tCREATED")
	fmt.Fprintln(w, "--\t--------\t-----\t-------\t-------")
	for _, c := range res.Calls {
		overall := "-"
		if c.OverallScore != nil {
			overall = strconv.Itoa(*c.OverallScore)
		}
		name := c.CustomerName
		if name == "" {
			name = fmt.Sprintf("customer %d", c.CustomerID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			c.ID, truncate(name, 30), c.State(), overall,
			c.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	fmt.Fprintf(out, "\nPage %d of %d (%d calls)\n", res.Page, res.TotalPages, res.Total)
}

// truncate shortens s to at most n runes. Customer names are Hebrew, so the
// cut must land on a rune boundary, not a byte offset.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
