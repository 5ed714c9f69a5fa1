// Package export writes a joined region table as CSV or XLSX.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/smartmap-fr/smartmap/internal/encode"
	"github.com/smartmap-fr/smartmap/internal/region"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, XLSX:
		return f, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// Header is the column row of every export.
var Header = []string{"code", "name", "avg_price_m2", "transaction_count", "fill_color", "height"}

// Row is one exported region. Absent statistics stay nil.
type Row struct {
	Code         string
	Name         string
	AvgPriceM2   *float64
	Transactions *int64
	FillColor    string
	Height       float64
}

// Rows flattens a collection with the encodings of its granularity.
func Rows(c *region.Collection) ([]Row, error) {
	p, err := region.Lookup(c.Granularity)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(c.Regions))
	for _, r := range c.Regions {
		rows = append(rows, Row{
			Code:         r.Code,
			Name:         r.Name,
			AvgPriceM2:   r.AvgPriceM2,
			Transactions: r.TransactionCount,
			FillColor:    encode.FillColor(r.AvgPriceM2).String(),
			Height:       encode.Height(r.AvgPriceM2, p.HeightDivisor),
		})
	}
	return rows, nil
}

// Write encodes c to w in format f.
func Write(w io.Writer, f Format, c *region.Collection) error {
	rows, err := Rows(c)
	if err != nil {
		return err
	}
	switch f {
	case CSV:
		return writeCSV(w, rows)
	case XLSX:
		return writeXLSX(w, sheetName(c), rows)
	}
	return eris.Errorf("export: unknown format %q", f)
}

func sheetName(c *region.Collection) string {
	return string(c.Granularity) + " " + strconv.Itoa(c.Year)
}

func (r Row) strings() []string {
	out := []string{r.Code, r.Name, "", "", r.FillColor, strconv.FormatFloat(r.Height, 'f', -1, 64)}
	if r.AvgPriceM2 != nil {
		out[2] = strconv.FormatFloat(*r.AvgPriceM2, 'f', -1, 64)
	}
	if r.Transactions != nil {
		out[3] = strconv.FormatInt(*r.Transactions, 10)
	}
	return out
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(r.strings()); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", r.Code)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

func writeXLSX(w io.Writer, name string, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Code)
		row.AddCell().SetString(r.Name)
		price := row.AddCell()
		if r.AvgPriceM2 != nil {
			price.SetFloat(*r.AvgPriceM2)
		}
		count := row.AddCell()
		if r.Transactions != nil {
			count.SetInt64(*r.Transactions)
		}
		row.AddCell().SetString(r.FillColor)
		row.AddCell().SetFloat(r.Height)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}
