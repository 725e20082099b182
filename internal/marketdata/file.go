package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/spf13/afero"
)

var ErrInvalidSymbol = errors.New("invalid symbol")

var fileDateLayouts = []string{time.DateOnly, time.RFC3339, time.DateTime}

// File reads bars from <dir>/<SYMBOL>.csv files. The first CSV column is the
// date index, the rest are named by the header row.
type File struct {
	fs  afero.Fs
	dir string
}

// Ensure File implements the Provider interface.
var _ Provider = (*File)(nil)

func NewFile(fs afero.Fs, dir string) *File {
	return &File{fs: fs, dir: dir}
}

func (f *File) Name() string { return "file" }

func (f *File) Fetch(ctx context.Context, q Query) (*Frame, error) {
	if q.Symbol == "" || strings.ContainsAny(q.Symbol, `/\`) || strings.Contains(q.Symbol, "..") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, q.Symbol)
	}

	filePath := path.Join(f.dir, q.Symbol+".csv")
	exists, err := afero.Exists(f.fs, filePath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: no file for %s", domain.ErrNoData, q.Symbol)
	}

	file, err := f.fs.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open `%s`: %w", filePath, err)
	}
	defer file.Close()

	frame, err := readCSVFrame(ctx, q, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read `%s`: %w", filePath, err)
	}
	if frame.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows for %s in range", domain.ErrNoData, q.Symbol)
	}
	return frame, nil
}

func readCSVFrame(ctx context.Context, q Query, r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Frame{Symbol: q.Symbol}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header has %d columns", len(header))
	}

	frame := &Frame{
		Symbol:    q.Symbol,
		IndexName: strings.TrimSpace(header[0]),
		Columns:   header[1:],
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		date, ok := parseFileDate(record[0])
		if !ok {
			continue
		}
		if !q.Start.IsZero() && date.Before(truncateDay(q.Start)) {
			continue
		}
		if !q.End.IsZero() && date.After(q.End) {
			continue
		}
		frame.Rows = append(frame.Rows, Row{Date: date, Cells: record[1:]})
	}
	return frame, nil
}

func parseFileDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range fileDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
