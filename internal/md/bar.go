package md

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

type Bar struct {
	Symbol    string
	Timestamp int64
	Close     float64
}

func (b Bar) Time() time.Time {
	return time.Unix(b.Timestamp, 0).UTC()
}

// ReadBars loads a backtest bar file: CSV with a header row and
// timestamp,close columns. Timestamps are RFC 3339 or unix seconds.
func ReadBars(path, symbol string) ([]Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBars(file, symbol)
}

func parseBars(r io.Reader, symbol string) ([]Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read bar header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("bar header needs timestamp,close columns, got %v", header)
	}

	var bars []Bar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read bar line %d: %w", line, err)
		}
		line++

		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("bar line %d: %w", line, err)
		}
		close, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bar line %d close: %w", line, err)
		}
		bars = append(bars, Bar{Symbol: symbol, Timestamp: ts, Close: close})
	}
	return bars, nil
}

func parseTimestamp(s string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unix, nil
	}
	return 0, fmt.Errorf("timestamp %q is neither RFC 3339 nor unix seconds", s)
}
