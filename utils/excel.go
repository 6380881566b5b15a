package utils

import (
	"cafes/form"
	"cafes/model"
	"errors"
	"fmt"
	"github.com/xuri/excelize/v2"
	"io"
	"net/url"
	"strings"
)

const CafeSheet = "Cafes"

// SheetColumns is the header row of exported and imported workbooks.
var SheetColumns = form.Columns(form.NewCafe{})

// SheetRow is one data row keyed by header, with its 1-based row number.
type SheetRow struct {
	Number int
	Values url.Values
}

func WriteCafes(w io.Writer, cafes []model.Cafe) error {
	xl := excelize.NewFile()
	defer xl.Close()

	if err := xl.SetSheetName(xl.GetSheetName(0), CafeSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(SheetColumns))
	for i, col := range SheetColumns {
		header[i] = col
	}
	if err := xl.SetSheetRow(CafeSheet, "A1", &header); err != nil {
		return err
	}

	for i, c := range cafes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			c.Name, c.MapURL, c.ImgURL, c.Location,
			yesNo(c.HasSockets), yesNo(c.HasToilet), yesNo(c.HasWifi), yesNo(c.CanTakeCalls),
			c.SeatsText(), c.PriceText(),
		}
		if err := xl.SetSheetRow(CafeSheet, cell, &row); err != nil {
			return err
		}
	}

	_, err := xl.WriteTo(w)
	return err
}

// ReadCafeRows reads the Cafes sheet (or the first sheet) and returns the
// non-empty data rows. Unknown header columns are ignored.
func ReadCafeRows(r io.Reader) ([]SheetRow, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer xl.Close()

	sheet := CafeSheet
	if idx, _ := xl.GetSheetIndex(sheet); idx < 0 {
		sheet = xl.GetSheetName(0)
	}

	rows, err := xl.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.New("spreadsheet needs a header row and at least one data row")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var out []SheetRow
	for i, row := range rows[1:] {
		values := url.Values{}
		empty := true
		for j, cell := range row {
			if j >= len(header) || header[j] == "" {
				continue
			}
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
			values.Set(header[j], cell)
		}
		if empty {
			continue
		}
		out = append(out, SheetRow{Number: i + 2, Values: values})
	}
	return out, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
