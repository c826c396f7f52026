// Package enrich maps business postcodes to telephone area codes using a
// spreadsheet lookup table.
package enrich

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// AreaCodeMap maps an uppercased postcode district (the first token of a
// postcode, e.g. "SW1A") to its telephone area code.
type AreaCodeMap map[string]string

// headerNames are the recognized column headers in the lookup sheet,
// compared case-insensitively.
const (
	postcodeHeader = "postcode"
	areaCodeHeader = "telephone area code"
)

// LoadAreaCodes reads the lookup table from the first sheet of the xlsx
// file at path. The sheet needs a "postcode" column and a "telephone
// area code" column; rows missing either value are skipped.
func LoadAreaCodes(path string) (AreaCodeMap, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: open area codes %s", path)
	}
	if len(file.Sheets) == 0 {
		return nil, eris.New("enrich: area codes workbook has no sheets")
	}

	sheet := file.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("enrich: area codes sheet is empty")
	}

	postcodeCol, areaCodeCol := -1, -1
	for i, cell := range sheet.Rows[0].Cells {
		switch strings.ToLower(strings.TrimSpace(cell.String())) {
		case postcodeHeader:
			postcodeCol = i
		case areaCodeHeader:
			areaCodeCol = i
		}
	}
	if postcodeCol < 0 || areaCodeCol < 0 {
		return nil, eris.New("enrich: area codes sheet missing postcode or area code column")
	}

	codes := make(AreaCodeMap)
	for _, row := range sheet.Rows[1:] {
		if len(row.Cells) <= postcodeCol || len(row.Cells) <= areaCodeCol {
			continue
		}
		district := DistrictOf(row.Cells[postcodeCol].String())
		areaCode := strings.TrimSpace(row.Cells[areaCodeCol].String())
		if district == "" || areaCode == "" {
			continue
		}
		codes[district] = areaCode
	}
	return codes, nil
}

// DistrictOf extracts the lookup key from a full postcode: the first
// whitespace-separated token, uppercased. "sw1a 1aa" yields "SW1A".
func DistrictOf(postcode string) string {
	fields := strings.Fields(postcode)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// Lookup returns the area code for a business postcode, or the empty
// string when the district is unknown.
func (m AreaCodeMap) Lookup(postcode string) string {
	return m[DistrictOf(postcode)]
}
