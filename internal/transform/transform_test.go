package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlendBerisha/businessscrapper/internal/enrich"
	"github.com/BlendBerisha/businessscrapper/internal/model"
)

func TestTransformer_Run_Split(t *testing.T) {
	t.Parallel()

	records := []model.RawRecord{
		{DisplayName: "Pipe Dreams Ltd", Email: "info@pipedreams.example", EmailTitle: "Owner"},
		{DisplayName: "Drain Brains"},
	}

	withEmail, withoutEmail := New(nil).Run(records)
	require.Len(t, withEmail, 1)
	require.Len(t, withoutEmail, 1)
	assert.Equal(t, "info@pipedreams.example", withEmail[0].Email)
	assert.Equal(t, "Owner", withEmail[0].EmailTitle)
	assert.Equal(t, "Drain Brains", withoutEmail[0].Record.DisplayName)
	assert.Empty(t, withoutEmail[0].Email)
}

func TestTransformer_Run_RowPerSlotEmail(t *testing.T) {
	t.Parallel()

	r := model.RawRecord{
		DisplayName:     "Multi Contact Co",
		Email:           "a@biz.example",
		Email1:          "b@biz.example",
		Email1Title:     "Manager",
		Email1FirstName: "Bea",
	}
	r.SlotValid[1] = true
	r.IsEmailValid = true

	withEmail, withoutEmail := New(nil).Run([]model.RawRecord{r})
	require.Len(t, withEmail, 2)
	assert.Empty(t, withoutEmail)

	assert.Equal(t, "a@biz.example", withEmail[0].Email)
	assert.False(t, withEmail[0].IsEmailValid)

	assert.Equal(t, "b@biz.example", withEmail[1].Email)
	assert.Equal(t, "Manager", withEmail[1].EmailTitle)
	assert.Equal(t, "Bea", withEmail[1].EmailFirstName)
	assert.True(t, withEmail[1].IsEmailValid)

	// Both rows share the base attributes.
	assert.Equal(t, "Multi Contact Co", withEmail[0].Record.DisplayName)
	assert.Equal(t, "Multi Contact Co", withEmail[1].Record.DisplayName)
}

func TestTransformer_Run_LaterSlotOnly(t *testing.T) {
	t.Parallel()

	r := model.RawRecord{Email2: "only@biz.example", Email2Title: "Director"}

	withEmail, _ := New(nil).Run([]model.RawRecord{r})
	require.Len(t, withEmail, 1)
	assert.Equal(t, "only@biz.example", withEmail[0].Email)
	assert.Equal(t, "Director", withEmail[0].EmailTitle)
	assert.False(t, withEmail[0].IsEmailValid)
}

func TestTransformer_Run_RepeatedSlotWithinRecord(t *testing.T) {
	t.Parallel()

	r := model.RawRecord{
		Email:  "dup@biz.example",
		Email1: "dup@biz.example",
	}

	withEmail, withoutEmail := New(nil).Run([]model.RawRecord{r})
	require.Len(t, withEmail, 1)
	assert.Empty(t, withoutEmail)
	assert.Equal(t, "dup@biz.example", withEmail[0].Email)
}

func TestTransformer_Run_DedupAcrossRecords(t *testing.T) {
	t.Parallel()

	records := []model.RawRecord{
		{DisplayName: "First", Email: "shared@biz.example"},
		{DisplayName: "Second", Email: "shared@biz.example"},
	}

	withEmail, withoutEmail := New(nil).Run(records)
	require.Len(t, withEmail, 1)
	require.Len(t, withoutEmail, 1)
	assert.Equal(t, "First", withEmail[0].Record.DisplayName)
	assert.Equal(t, "Second", withoutEmail[0].Record.DisplayName)
}

func TestTransformer_Run_DedupMatchesExactString(t *testing.T) {
	t.Parallel()

	// Addresses differing only in case are treated as distinct.
	records := []model.RawRecord{
		{DisplayName: "First", Email: "shared@biz.example"},
		{DisplayName: "Second", Email: "Shared@Biz.Example"},
	}

	withEmail, withoutEmail := New(nil).Run(records)
	require.Len(t, withEmail, 2)
	assert.Empty(t, withoutEmail)
	assert.Equal(t, "shared@biz.example", withEmail[0].Email)
	assert.Equal(t, "Shared@Biz.Example", withEmail[1].Email)
}

func TestTransformer_Run_PartiallySeenRecord(t *testing.T) {
	t.Parallel()

	records := []model.RawRecord{
		{DisplayName: "First", Email: "a@biz.example"},
		{DisplayName: "Second", Email: "a@biz.example", Email1: "b@biz.example"},
	}

	withEmail, withoutEmail := New(nil).Run(records)
	require.Len(t, withEmail, 2)
	assert.Empty(t, withoutEmail)
	assert.Equal(t, "a@biz.example", withEmail[0].Email)
	assert.Equal(t, "First", withEmail[0].Record.DisplayName)
	assert.Equal(t, "b@biz.example", withEmail[1].Email)
	assert.Equal(t, "Second", withEmail[1].Record.DisplayName)
}

func TestTransformer_Run_DedupAcrossBatches(t *testing.T) {
	t.Parallel()

	tr := New(nil)
	withEmail, _ := tr.Run([]model.RawRecord{{Email: "shared@biz.example"}})
	require.Len(t, withEmail, 1)

	// Same email in a later page of the same job is suppressed.
	withEmail, withoutEmail := tr.Run([]model.RawRecord{{Email: "shared@biz.example"}})
	assert.Empty(t, withEmail)
	assert.Len(t, withoutEmail, 1)
}

func TestTransformer_Run_AreaCodeEnrichment(t *testing.T) {
	t.Parallel()

	codes := enrich.AreaCodeMap{"SW1A": "020"}
	records := []model.RawRecord{
		{PostalCode: "sw1a 1aa", Email: "a@biz.example"},
		{PostalCode: "EH1 1YZ", Email: "b@biz.example"},
	}

	withEmail, _ := New(codes).Run(records)
	require.Len(t, withEmail, 2)
	assert.Equal(t, "020", withEmail[0].EnrichAreaCode)
	assert.Empty(t, withEmail[1].EnrichAreaCode)
}

func TestTransformer_Run_PhonePrefixAndSlotStrip(t *testing.T) {
	t.Parallel()

	r := model.RawRecord{
		Phone:  "+442071234567",
		Email:  "a@biz.example",
		Email1: "b@biz.example",
	}

	withEmail, _ := New(nil).Run([]model.RawRecord{r})
	require.Len(t, withEmail, 2)

	for _, row := range withEmail {
		assert.Equal(t, "'+442071234567", row.Record.Phone)

		// Raw slots are stripped from the output copy.
		assert.Empty(t, row.Record.Email)
		assert.Empty(t, row.Record.Email1)
	}
}
