package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/call-insight/internal/ingest"
	"github.com/sells-group/call-insight/internal/model"
)

var importCmd = &cobra.Command{
	Use:   "import <manifest>",
	Short: "Import sales calls from a CSV or XLSX manifest",
	Long: `Bulk call intake. The manifest needs name, phone and audio columns; an
email column is optional, and common header spellings are recognized.
Customers are matched by phone and created when missing; calls upsert on the
audio path, so re-importing a manifest does not duplicate work.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		manifestPath := args[0]

		records, err := ingest.ReadManifest(ctx, manifestPath)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		calls := make([]model.SalesCall, 0, len(records))
		idByPhone := make(map[string]int64)
		created := 0
		for _, rec := range records {
			id, ok := idByPhone[rec.Phone]
			if !ok {
				cust, err := st.GetCustomerByPhone(ctx, rec.Phone)
				if err != nil {
					return eris.Wrapf(err, "import: look up customer %s", rec.Phone)
				}
				if cust == nil {
					cust = &model.Customer{Name: rec.CustomerName, Phone: rec.Phone}
					if rec.Email != "" {
						cust.Email = strAddr(rec.Email)
					}
					if err := st.CreateCustomer(ctx, cust); err != nil {
						return eris.Wrapf(err, "import: create customer %s", rec.Phone)
					}
					created++
				}
				id = cust.ID
				idByPhone[rec.Phone] = id
			}
			calls = append(calls, model.SalesCall{
				CustomerID:    id,
				AudioFilePath: rec.AudioFilePath,
			})
		}

		inserted, err := st.InsertCalls(ctx, calls)
		if err != nil {
			return eris.Wrap(err, "import: insert calls")
		}

		zap.L().Info("import complete",
			zap.String("manifest", manifestPath),
			zap.Int("customers_created", created),
			zap.Int64("calls_inserted", inserted),
		)
		fmt.Printf("Imported %d calls (%d new customers).\n", inserted, created)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
