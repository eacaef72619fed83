package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/call-insight/internal/analysis"
	"github.com/sells-group/call-insight/internal/model"
)

func TestFormatCallsList(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	transcript := "שלום, אני מעוניין בנכס"
	overall := 80

	res := &analysis.ListResult{
		Calls: []analysis.CallView{
			{
				SalesCall: model.SalesCall{
					ID:            1,
					CustomerID:    3,
					AudioFilePath: "recordings/call-0001.mp3",
					Transcript:    &transcript,
					OverallScore:  &overall,
					CreatedAt:     now,
				},
				CustomerName: "דנה לוי",
			},
			{
				SalesCall: model.SalesCall{
					ID:            2,
					CustomerID:    4,
					AudioFilePath: "recordings/call-0002.mp3",
					CreatedAt:     now.Add(-time.Hour),
				},
				CustomerName: "יוסי כהן",
			},
		},
		Total:      2,
		Page:       1,
		Limit:      20,
		TotalPages: 1,
	}

	var buf bytes.Buffer
	formatCallsList(&buf, res)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "CUSTOMER")
	assert.Contains(t, output, "STATE")
	assert.Contains(t, output, "דנה לוי")
	assert.Contains(t, output, "scored")
	assert.Contains(t, output, "80")
	assert.Contains(t, output, "יוסי כהן")
	assert.Contains(t, output, "pending")
	assert.Contains(t, output, "2026-08-01 09:30")
	assert.Contains(t, output, "Page 1 of 1 (2 calls)")
}

func TestFormatCallsList_UnknownCustomer(t *testing.T) {
	res := &analysis.ListResult{
		Calls: []analysis.CallView{
			{SalesCall: model.SalesCall{ID: 9, CustomerID: 12}},
		},
		Total: 1, Page: 1, Limit: 20, TotalPages: 1,
	}

	var buf bytes.Buffer
	formatCallsList(&buf, res)

	assert.Contains(t, buf.String(), "customer 12")
}

func TestFormatCallsList_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatCallsList(&buf, &analysis.ListResult{Page: 1, Limit: 20})

	assert.Contains(t, buf.String(), "No calls found.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 30))

	// The cut must land on a rune boundary, not mid-character.
	long := "אברהם בן-דוד מנחם מנדל שניאורסון"
	got := truncate(long, 10)
	assert.Equal(t, "אברהם ב...", got)
	assert.Len(t, []rune(got), 10)
}
