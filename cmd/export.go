package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/call-insight/internal/analysis"
)

const exportPageSize = 100

var exportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Export scored calls to an XLSX workbook",
	Long: `Write every scored call to a spreadsheet: customer, recording path, the
four category scores, the overall score and the analysis notes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		outPath := args[0]

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		q := analysis.NewQueryService(st)
		var views []analysis.CallView
		for page := 1; ; page++ {
			res, err := q.List(ctx, analysis.ListRequest{
				Status: "scored",
				Page:   page,
				Limit:  exportPageSize,
			})
			if err != nil {
				return err
			}
			views = append(views, res.Calls...)
			if page >= res.TotalPages {
				break
			}
		}

		if len(views) == 0 {
			fmt.Println("No scored calls to export.")
			return nil
		}

		if err := writeCallsWorkbook(outPath, views); err != nil {
			return err
		}
		fmt.Printf("Exported %d scored calls to %s.\n", len(views), outPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

// writeCallsWorkbook writes the scored calls to a single-sheet workbook.
func writeCallsWorkbook(path string, calls []analysis.CallView) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Scored Calls")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"ID", "Customer", "Audio File",
		"Urgency", "Budget", "Interest", "Engagement", "Overall",
		"Notes", "Created",
	} {
		header.AddCell().Value = h
	}

	for _, c := range calls {
		row := sheet.AddRow()
		row.AddCell().SetInt64(c.ID)
		row.AddCell().Value = c.CustomerName
		row.AddCell().Value = c.AudioFilePath
		addScoreCell(row, c.UrgencyScore)
		addScoreCell(row, c.BudgetScore)
		addScoreCell(row, c.InterestScore)
		addScoreCell(row, c.EngagementScore)
		addScoreCell(row, c.OverallScore)
		notes := row.AddCell()
		if c.AnalysisNotes != nil {
			notes.Value = *c.AnalysisNotes
		}
		row.AddCell().Value = c.CreatedAt.Format("2006-01-02 15:04")
	}

	return eris.Wrapf(f.Save(path), "export: save workbook %s", path)
}

// addScoreCell appends a numeric cell, left empty when the score is absent.
func addScoreCell(row *xlsx.Row, v *int) {
	cell := row.AddCell()
	if v != nil {
		cell.SetInt(*v)
	}
}
