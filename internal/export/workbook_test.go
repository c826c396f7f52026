package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

func cellValue(t *testing.T, sheet *xlsx.Sheet, rowIdx int, column string) string {
	t.Helper()
	for i, header := range sheet.Rows[0].Cells {
		if header.String() == column {
			require.Greater(t, len(sheet.Rows), rowIdx)
			row := sheet.Rows[rowIdx]
			if i >= len(row.Cells) {
				return ""
			}
			return row.Cells[i].String()
		}
	}
	t.Fatalf("column %q not found", column)
	return ""
}

func TestBuildWorkbook_BothSheets(t *testing.T) {
	t.Parallel()

	withEmail := []model.EnrichedRecord{{
		Record: model.RawRecord{
			DisplayName: "Pipe Dreams Ltd",
			Phone:       "'+442071234567",
			Verified:    true,
			Rating:      4.5,
			Reviews:     12,
		},
		EnrichAreaCode: "020",
		Email:          "info@pipedreams.example",
		EmailTitle:     "Owner",
		IsEmailValid:   true,
	}}
	withoutEmail := []model.EnrichedRecord{{
		Record: model.RawRecord{DisplayName: "Drain Brains"},
	}}

	data, err := BuildWorkbook(withEmail, withoutEmail)
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	with, ok := f.Sheet[SheetWithEmails]
	require.True(t, ok)
	assert.Equal(t, "Pipe Dreams Ltd", cellValue(t, with, 1, "display_name"))
	assert.Equal(t, "info@pipedreams.example", cellValue(t, with, 1, "email"))
	assert.Equal(t, "Owner", cellValue(t, with, 1, "email_title"))
	assert.Equal(t, "020", cellValue(t, with, 1, "enrich area codes"))
	assert.Equal(t, "'+442071234567", cellValue(t, with, 1, "phone"))
	assert.Equal(t, "TRUE", cellValue(t, with, 1, "is_email_valid"))
	assert.Equal(t, "TRUE", cellValue(t, with, 1, "verified"))

	without, ok := f.Sheet[SheetNoEmails]
	require.True(t, ok)
	assert.Equal(t, "Drain Brains", cellValue(t, without, 1, "display_name"))
	assert.Equal(t, "FALSE", cellValue(t, without, 1, "is_email_valid"))
	assert.Empty(t, cellValue(t, without, 1, "email"))
}

func TestBuildWorkbook_OnlyWithEmails(t *testing.T) {
	t.Parallel()

	withEmail := []model.EnrichedRecord{{Email: "a@biz.example"}}
	data, err := BuildWorkbook(withEmail, nil)
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Equal(t, SheetWithEmails, f.Sheets[0].Name)
}

func TestBuildWorkbook_Empty(t *testing.T) {
	t.Parallel()

	data, err := BuildWorkbook(nil, nil)
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Equal(t, SheetPlaceholder, f.Sheets[0].Name)
	assert.Equal(t, "No data available", f.Sheets[0].Rows[0].Cells[0].String())
}

func TestBuildWorkbook_StructuredValuesAsJSON(t *testing.T) {
	t.Parallel()

	withEmail := []model.EnrichedRecord{{
		Record: model.RawRecord{
			WorkingHours: map[string]any{"monday": "9-5"},
		},
		Email: "a@biz.example",
	}}

	data, err := BuildWorkbook(withEmail, nil)
	require.NoError(t, err)
	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)

	sheet := f.Sheets[0]
	assert.Equal(t, `{"monday":"9-5"}`, cellValue(t, sheet, 1, "working_hours"))
}

func TestBuildWorkbook_HeaderOrder(t *testing.T) {
	t.Parallel()

	data, err := BuildWorkbook([]model.EnrichedRecord{{Email: "a@biz.example"}}, nil)
	require.NoError(t, err)
	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)

	header := f.Sheets[0].Rows[0]
	require.Len(t, header.Cells, len(ColumnOrder))
	assert.Equal(t, "display_name", header.Cells[0].String())
	assert.Equal(t, "is_email_valid", header.Cells[len(ColumnOrder)-1].String())
}

func TestArtifactName(t *testing.T) {
	t.Parallel()

	ts := time.UnixMilli(1717245296789)
	assert.Equal(t, "queued_1717245296789.xlsx", ArtifactName(ts))
}
