// Package transform normalizes verified raw records into the flat output
// shape: one row per distinct email, global dedup, area-code enrichment.
package transform

import (
	"strings"

	"go.uber.org/zap"

	"github.com/BlendBerisha/businessscrapper/internal/enrich"
	"github.com/BlendBerisha/businessscrapper/internal/model"
)

// Transformer flattens raw records, deduplicating emails across the
// whole batch.
type Transformer struct {
	areaCodes enrich.AreaCodeMap
	seen      map[string]bool
}

// New creates a Transformer. areaCodes may be nil; enrichment columns
// are then left blank.
func New(areaCodes enrich.AreaCodeMap) *Transformer {
	return &Transformer{
		areaCodes: areaCodes,
		seen:      make(map[string]bool),
	}
}

// Run fans each record out into one row per email slot that has not
// been emitted before, so a record carrying four distinct addresses
// yields four rows. A record whose every slot is empty or already seen
// lands once in the no-email bucket. Seen emails match by exact string
// and persist across Run calls on the same Transformer, so paged
// batches dedup against each other.
func (t *Transformer) Run(records []model.RawRecord) (withEmail, withoutEmail []model.EnrichedRecord) {
	for i := range records {
		rows := t.flatten(&records[i])
		if len(rows) > 0 {
			withEmail = append(withEmail, rows...)
		} else {
			withoutEmail = append(withoutEmail, t.base(&records[i]))
		}
	}

	zap.L().Info("transformed records",
		zap.Int("with_email", len(withEmail)),
		zap.Int("without_email", len(withoutEmail)),
	)
	return withEmail, withoutEmail
}

// flatten emits one output row per unseen slot email, each carrying
// that slot's contact metadata and validity flag over a shared copy of
// the base attributes.
func (t *Transformer) flatten(r *model.RawRecord) []model.EnrichedRecord {
	base := t.base(r)

	var rows []model.EnrichedRecord
	for i := 0; i < model.NumEmailSlots; i++ {
		slot := r.Slot(i)
		if slot.Email == "" || t.seen[slot.Email] {
			continue
		}
		t.seen[slot.Email] = true

		out := base
		out.Email = slot.Email
		out.EmailTitle = slot.Title
		out.EmailFirstName = slot.FirstName
		out.EmailLastName = slot.LastName
		out.IsEmailValid = r.SlotValid[i]
		rows = append(rows, out)
	}
	return rows
}

// base builds the shared projection: area-code enrichment, the phone
// guard, and a copy of the record with raw slots stripped.
func (t *Transformer) base(r *model.RawRecord) model.EnrichedRecord {
	out := model.EnrichedRecord{
		Record:         *r,
		EnrichAreaCode: t.areaCodes.Lookup(r.PostalCode),
	}

	// Spreadsheet consumers must not mangle phone numbers into floats.
	if out.Record.Phone != "" && !strings.HasPrefix(out.Record.Phone, "'") {
		out.Record.Phone = "'" + out.Record.Phone
	}

	out.Record.ClearSlots()
	return out
}
