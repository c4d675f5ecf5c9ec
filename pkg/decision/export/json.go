// Package export writes decision records to external formats.
package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/gzip"

	"mercator-hq/callisto/pkg/decision"
)

// JSONExporter exports decision records as a JSON array, optionally
// gzip compressed.
type JSONExporter struct {
	// Pretty enables indented output.
	Pretty bool

	// Compress gzips the output stream.
	Compress bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty, compress bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty, Compress: compress}
}

// Export writes the records to w. The output is always a JSON array,
// even for zero or one record.
func (e *JSONExporter) Export(ctx context.Context, records []*decision.Record, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return decision.NewExportError("json", 0, err)
	}

	out := w
	var gz *gzip.Writer
	if e.Compress {
		gz = gzip.NewWriter(w)
		out = gz
	}

	var data []byte
	var err error
	if records == nil {
		data = []byte("[]")
	} else if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return decision.NewExportError("json", len(records), err)
	}

	if _, err := out.Write(data); err != nil {
		return decision.NewExportError("json", len(records), err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return decision.NewExportError("json", len(records), err)
		}
	}
	return nil
}
