package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
)

// Splits holds the named splits of a dataset file ("train", "eval", ...).
type Splits map[string][]Record

// Extensions lists the file types ReadFile understands, in lookup order.
var Extensions = []string{".json", ".jsonl", ".csv", ".tsv"}

// ReadFile reads a local dataset file, inferring the format from the
// extension. A JSON object with a "train" or "eval" key is treated as a set
// of named splits; any other layout becomes a single "train" split.
func ReadFile(path string) (Splits, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return readJSON(f)
	case ".jsonl":
		return readJSONL(f)
	case ".csv":
		return readDelimited(f, ',')
	case ".tsv":
		return readDelimited(f, '\t')
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func readJSON(r io.Reader) (Splits, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	switch t := v.(type) {
	case []any:
		recs, err := toRecords(t)
		if err != nil {
			return nil, err
		}
		return Splits{"train": recs}, nil
	case map[string]any:
		if !isSplitLayout(t) {
			return Splits{"train": {Record(t)}}, nil
		}
		splits := make(Splits, len(t))
		for name, sv := range t {
			arr, ok := sv.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: split %s is not an array", ErrMalformedRecord, name)
			}
			recs, err := toRecords(arr)
			if err != nil {
				return nil, fmt.Errorf("split %s: %w", name, err)
			}
			splits[name] = recs
		}
		return splits, nil
	default:
		return nil, fmt.Errorf("%w: top-level json must be an array or object", ErrMalformedRecord)
	}
}

// splitNames are the keys that mark a JSON object as a split layout.
var splitNames = []string{"train", "eval"}

func isSplitLayout(obj map[string]any) bool {
	for _, name := range splitNames {
		if _, ok := obj[name]; ok {
			return true
		}
	}
	return false
}

func toRecords(arr []any) ([]Record, error) {
	recs := make([]Record, len(arr))
	for i, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is not an object", ErrMalformedRecord, i)
		}
		recs[i] = Record(m)
	}
	return recs, nil
}

func readJSONL(r io.Reader) (Splits, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var recs []Record
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var m map[string]any
		if err := sonic.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("failed to decode line %d: %w", line, err)
		}
		recs = append(recs, Record(m))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return Splits{"train": recs}, nil
}

func readDelimited(r io.Reader, comma rune) (Splits, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	var recs []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		recs = append(recs, rec)
	}
	return Splits{"train": recs}, nil
}

// WriteJSONL writes examples one JSON object per line.
func WriteJSONL(w io.Writer, examples []Example) error {
	bw := bufio.NewWriter(w)
	for i, ex := range examples {
		b, err := sonic.Marshal(ex)
		if err != nil {
			return fmt.Errorf("failed to encode example %d: %w", i, err)
		}
		if _, err := bw.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return bw.Flush()
}
