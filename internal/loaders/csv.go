package loaders

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
)

// CSVLoader emits one document per data row. The header row supplies
// the column names; each row document reads "column: value" per line
// so the model can quote individual fields.
type CSVLoader struct{}

func (l *CSVLoader) Load(_ context.Context, src Source) (*Result, error) {
	const op = "CSVLoader.Load"

	r := csv.NewReader(bytes.NewReader(src.Data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read csv header", err)
	}

	res := &Result{}
	row := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read csv row", err)
		}

		var b strings.Builder
		for i, val := range record {
			name := "column_" + strconv.Itoa(i+1)
			if i < len(header) {
				name = strings.TrimSpace(header[i])
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(val)
			b.WriteString("\n")
		}

		res.Documents = append(res.Documents, models.RawDocument{
			PageContent: b.String(),
			Metadata: map[string]any{
				"source":  src.Filename,
				"row":     row,
				"columns": append([]string(nil), header...),
			},
		})
		row++
	}
	return res, nil
}
