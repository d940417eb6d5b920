package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
)

const (
	dateHeader   = "Date"
	periodHeader = "Period"
)

// WriteCSV writes the panel with a leading Date column, or a Period column
// when the panel has no dates. Missing values are written as empty cells.
func (p *Panel) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(p.Columns)+1)
	if p.Dates != nil {
		header = append(header, dateHeader)
	} else {
		header = append(header, periodHeader)
	}
	header = append(header, p.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(p.Columns)+1)
	for i, row := range p.Values {
		if p.Dates != nil {
			record[0] = p.Dates[i].Format(core.DateLayout)
		} else {
			record[0] = strconv.Itoa(i)
		}
		for j, v := range row {
			if math.IsNaN(v) {
				record[j+1] = ""
				continue
			}
			record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a panel written by WriteCSV. Rows are returned in file
// order; callers that need chronological order must write it that way.
func ReadCSV(r io.Reader) (*Panel, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("empty csv"))
	}

	header := records[0]
	if len(header) < 2 {
		return nil, core.WrapError(core.ErrPrecondition, fmt.Errorf("csv has no asset columns"))
	}
	hasDates := header[0] == dateHeader

	p := &Panel{
		Columns: append([]string(nil), header[1:]...),
		Values:  make([][]float64, 0, len(records)-1),
	}
	if hasDates {
		p.Dates = make([]time.Time, 0, len(records)-1)
	}

	for line, rec := range records[1:] {
		if hasDates {
			d, err := time.Parse(core.DateLayout, rec[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing date: %w", line+2, err)
			}
			p.Dates = append(p.Dates, d)
		}
		row := make([]float64, len(rec)-1)
		for j, cell := range rec[1:] {
			if cell == "" {
				row[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line+2, p.Columns[j], err)
			}
			row[j] = v
		}
		p.Values = append(p.Values, row)
	}

	return p, nil
}
