package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// ReadOptions controls delimited-text ingestion.
type ReadOptions struct {
	// Delimiter for the file. If 0, it is sniffed from the header line
	// among ',', ';' and '\t'.
	Delimiter rune
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
}

// ReadFile loads a delimited text file. A ".tsv" extension selects tab as
// the delimiter unless one is set explicitly.
func ReadFile(path string, opt ReadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	if opt.Delimiter == 0 && strings.EqualFold(filepath.Ext(path), ".tsv") {
		opt.Delimiter = '\t'
	}
	return ReadCSV(f, filepath.Base(path), opt)
}

// ReadCSV parses delimited text with a header row. Ragged rows and
// malformed quoting are reported as *errors.ParseError.
func ReadCSV(r io.Reader, name string, opt ReadOptions) (*Dataset, error) {
	br := bufio.NewReader(r)

	delim := opt.Delimiter
	if delim == 0 {
		head, err := br.Peek(4096)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, errors.NewParseError(name, 0, err)
		}
		delim = sniffDelimiter(head)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewParseError(name, 0, errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.NewParseError(name, 1, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			break
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, errors.NewParseError(name, line, err)
		}
		rows = append(rows, rec)
	}

	ds, err := New(name, header, rows)
	if err != nil {
		return nil, errors.NewParseError(name, 1, err)
	}
	return ds, nil
}

// sniffDelimiter picks the candidate that occurs most often on the first
// line, defaulting to comma.
func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := bytes.Count(head, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
