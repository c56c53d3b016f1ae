package table

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/ctmap/internal/model"
)

// SheetName is the worksheet name used by XLSX exports.
const SheetName = "Locations"

// SerializeTable renders locations as table text. Every field is quoted.
func SerializeTable(locs []model.Location) string {
	rows := make([]string, 0, len(locs)+1)
	rows = append(rows, strings.Join(Header, ","))
	for _, loc := range locs {
		fields := Fields(loc)
		for i := range fields {
			fields[i] = QuoteField(fields[i])
		}
		rows = append(rows, strings.Join(fields, ","))
	}
	return strings.Join(rows, "\n")
}

// Fields returns loc's columns in table order.
func Fields(loc model.Location) []string {
	return []string{
		loc.Name,
		loc.Address,
		loc.Keywords,
		strconv.Itoa(loc.LevelOfInterest),
		FormatMiles(loc.Distance),
		strconv.Itoa(loc.ETA),
		loc.NoteText(),
	}
}

// WriteXLSX writes locations as a single-sheet workbook with the table header.
func WriteXLSX(w io.Writer, locs []model.Location) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}

	for _, loc := range locs {
		row := sheet.AddRow()
		row.AddCell().SetString(loc.Name)
		row.AddCell().SetString(loc.Address)
		row.AddCell().SetString(loc.Keywords)
		row.AddCell().SetInt(loc.LevelOfInterest)
		row.AddCell().SetFloat(loc.Distance)
		row.AddCell().SetInt(loc.ETA)
		row.AddCell().SetString(loc.NoteText())
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

// ReadXLSX parses a workbook written by WriteXLSX (or any sheet with the same
// column layout) into locations. The first row is treated as the header.
func ReadXLSX(data []byte) ([]model.Location, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	var locs []model.Location
	for i, row := range f.Sheets[0].Rows {
		if i == 0 || row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		if loc, ok := FromFields(cells); ok {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}
