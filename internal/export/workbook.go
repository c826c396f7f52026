// Package export builds the output xlsx artifact from transformed
// records.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

// ContentType is the MIME type for the generated artifact.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names in the artifact. The placeholder sheet appears only when
// there are no records at all.
const (
	SheetWithEmails  = "With Emails"
	SheetNoEmails    = "No Emails"
	SheetPlaceholder = "No Data"
)

// ColumnOrder is the fixed output column layout, ending with the email
// columns.
var ColumnOrder = []string{
	"display_name", "types", "type", "country_code", "state", "city", "county", "street", "postal_code",
	"enrich area codes", "address", "latitude", "longitude", "phone", "phone_type",
	"linkedin", "facebook", "twitter", "instagram", "tiktok", "whatsapp", "youtube", "site",
	"site_generator", "photo", "photos_count", "rating", "rating_history", "reviews",
	"reviews_link", "range", "business_status", "business_status_history", "booking_appointment_link",
	"menu_link", "verified", "owner_title", "located_in", "os_id", "google_id", "place_id",
	"cid", "gmb_link", "located_os_id", "working_hours", "area_service", "about",
	"corp_name", "corp_employees", "corp_revenue", "corp_founded_year", "corp_is_public",
	"added_at", "updated_at", "email", "email_title", "email_first_name", "email_last_name", "is_email_valid",
}

// boolColumns are serialized as literal TRUE / FALSE strings.
var boolColumns = map[string]bool{
	"is_email_valid": true,
	"verified":       true,
	"area_service":   true,
	"corp_is_public": true,
}

// ArtifactName returns the upload filename for a run finishing at ts.
func ArtifactName(ts time.Time) string {
	return fmt.Sprintf("queued_%d.xlsx", ts.UnixMilli())
}

// BuildWorkbook assembles the artifact: a "With Emails" sheet and a
// "No Emails" sheet, each present only when it has records, or a single
// placeholder sheet when both are empty.
func BuildWorkbook(withEmail, withoutEmail []model.EnrichedRecord) ([]byte, error) {
	f := xlsx.NewFile()

	if len(withEmail) > 0 {
		if err := addRecordSheet(f, SheetWithEmails, withEmail); err != nil {
			return nil, err
		}
	}
	if len(withoutEmail) > 0 {
		if err := addRecordSheet(f, SheetNoEmails, withoutEmail); err != nil {
			return nil, err
		}
	}
	if len(withEmail) == 0 && len(withoutEmail) == 0 {
		sheet, err := f.AddSheet(SheetPlaceholder)
		if err != nil {
			return nil, eris.Wrap(err, "export: add placeholder sheet")
		}
		sheet.AddRow().AddCell().SetString("No data available")
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "export: serialize workbook")
	}
	return buf.Bytes(), nil
}

func addRecordSheet(f *xlsx.File, name string, records []model.EnrichedRecord) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	header := sheet.AddRow()
	for i, col := range ColumnOrder {
		header.AddCell().SetString(col)

		width := float64(len(col))
		if width < 15 {
			width = 15
		}
		sheet.SetColWidth(i, i, width)
	}

	for i := range records {
		row := sheet.AddRow()
		for _, col := range ColumnOrder {
			setCell(row.AddCell(), col, records[i].Field(col))
		}
	}
	return nil
}

// setCell writes one value with the column's serialization rules: bool
// columns as TRUE/FALSE, phone always as text, structured values as
// JSON, everything else by native type.
func setCell(cell *xlsx.Cell, col string, value any) {
	if value == nil {
		cell.SetString("")
		return
	}

	if boolColumns[col] {
		b, _ := value.(bool)
		if b {
			cell.SetString("TRUE")
		} else {
			cell.SetString("FALSE")
		}
		return
	}

	switch v := value.(type) {
	case string:
		cell.SetString(v)
	case bool:
		cell.SetBool(v)
	case int:
		cell.SetInt(v)
	case float64:
		cell.SetFloat(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			cell.SetString(fmt.Sprintf("%v", v))
			return
		}
		cell.SetString(string(encoded))
	}
}
