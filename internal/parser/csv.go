package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/typewriter/internal/charseq"
)

// CSVParser handles CSV files. The first record becomes a header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (charseq.Sequence, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	f := &flattener{seq: charseq.Sequence{}}
	if len(records) == 0 {
		return f.seq, nil
	}

	f.push("table", nil)
	for i, row := range records {
		cell := "td"
		if i == 0 {
			cell = "th"
		}
		f.push("tr", nil)
		for _, value := range row {
			f.push(cell, nil)
			f.text(value)
			f.pop()
		}
		f.pop()
	}
	f.pop()

	return f.seq, nil
}
