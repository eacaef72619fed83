package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/call-insight/internal/model"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo customers and pending calls",
	Long: `Insert a small demo dataset: customers with Israeli phone numbers and
pending sales calls pointing at sample recordings. Re-running is safe; calls
upsert on the audio path and existing customers are matched by phone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		customers := demoCustomers()
		var missing []model.Customer
		for _, c := range customers {
			existing, err := st.GetCustomerByPhone(ctx, c.Phone)
			if err != nil {
				return eris.Wrapf(err, "seed: look up customer %s", c.Phone)
			}
			if existing == nil {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			n, err := st.InsertCustomers(ctx, missing)
			if err != nil {
				return eris.Wrap(err, "seed: insert customers")
			}
			zap.L().Info("demo customers inserted", zap.Int64("count", n))
		}

		// Bulk insert reports a count, not IDs, so resolve each customer by
		// phone before building their calls.
		idByPhone := make(map[string]int64, len(customers))
		for _, c := range customers {
			stored, err := st.GetCustomerByPhone(ctx, c.Phone)
			if err != nil {
				return eris.Wrapf(err, "seed: resolve customer %s", c.Phone)
			}
			if stored == nil {
				return eris.Errorf("seed: customer %s missing after insert", c.Phone)
			}
			idByPhone[c.Phone] = stored.ID
		}

		inserted, err := st.InsertCalls(ctx, demoCalls(idByPhone))
		if err != nil {
			return eris.Wrap(err, "seed: insert calls")
		}

		fmt.Printf("Seeded %d new customers and %d calls.\n", len(missing), inserted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func strAddr(s string) *string { return &s }

func demoCustomers() []model.Customer {
	return []model.Customer{
		{Name: "דנה לוי", Phone: "052-5551234", Email: strAddr("dana.levi@example.com")},
		{Name: "יוסי כהן", Phone: "054-5559871", Email: strAddr("yossi.cohen@example.com")},
		{Name: "רות אברמוב", Phone: "053-5554466"},
		{Name: "אבי מזרחי", Phone: "050-5557020", Email: strAddr("avi.m@example.com")},
		{Name: "מיכל פרץ", Phone: "058-5553311"},
	}
}

func demoCalls(idByPhone map[string]int64) []model.SalesCall {
	specs := []struct {
		phone string
		audio string
	}{
		{"052-5551234", "recordings/demo/call-0001.mp3"},
		{"052-5551234", "recordings/demo/call-0002.mp3"},
		{"054-5559871", "recordings/demo/call-0003.mp3"},
		{"053-5554466", "recordings/demo/call-0004.mp3"},
		{"050-5557020", "recordings/demo/call-0005.mp3"},
		{"050-5557020", "recordings/demo/call-0006.mp3"},
		{"058-5553311", "recordings/demo/call-0007.mp3"},
	}

	calls := make([]model.SalesCall, 0, len(specs))
	for _, s := range specs {
		calls = append(calls, model.SalesCall{
			CustomerID:    idByPhone[s.phone],
			AudioFilePath: s.audio,
		})
	}
	return calls
}
