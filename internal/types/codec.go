package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encode serializes a table as a JSON array whose first element is the
// column list, followed by one element per row. Each record sits on its own
// line so files stay readable and diff well.
func Encode(columns []string, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	header, err := json.Marshal(columns)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal columns: %w", err)
	}
	buf.WriteString("[\n  ")
	buf.Write(header)
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		buf.WriteString(",\n  [")
		for j, v := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(&buf, v); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, columns[j], err)
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteString("\n]\n")
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch x := Normalize(v).(type) {
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("unsupported float value %v", x)
		}
		buf.WriteString(formatFloat(x))
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case string:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	default:
		return fmt.Errorf("%w: unsupported value %v (%T)", ErrTypeMismatch, v, v)
	}
	return nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) ([]string, []Row, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal table: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("table has no column header")
	}
	var columns []string
	if err := json.Unmarshal(records[0], &columns); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal column header: %w", err)
	}
	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := decodeRow(rec)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		if len(row) != len(columns) {
			return nil, nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

func decodeRow(rec json.RawMessage) (Row, error) {
	d := json.NewDecoder(bytes.NewReader(rec))
	d.UseNumber()
	var raw []any
	if err := d.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal row: %w", err)
	}
	row := make(Row, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case json.Number:
			n, err := decodeNumber(x)
			if err != nil {
				return nil, err
			}
			row[i] = n
		case string, bool:
			row[i] = x
		default:
			return nil, fmt.Errorf("%w: unsupported value %v", ErrTypeMismatch, v)
		}
	}
	return row, nil
}

func decodeNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %s: %w", s, err)
	}
	return f, nil
}
