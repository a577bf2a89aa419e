package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// ReadCSV loads a CSV file into a frame. The first record is the header.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return New(), nil
	}

	frame := New(records[0]...)
	for _, record := range records[1:] {
		frame.AppendRow(record...)
	}
	return frame, nil
}

// WriteCSV writes the frame to path, creating parent directories and
// overwriting any existing file.
func WriteCSV(frame *Frame, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(frame.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range frame.Rows {
		if err := writer.Write(padded(row, len(frame.Columns))); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// AppendCSV appends the frame's rows to path. When the file does not exist
// it is created with the frame's header; otherwise rows are aligned to the
// existing header (missing cells stay empty, extra columns are dropped) and
// appended without a header. Open-append-close: the existing content is
// never rewritten.
func AppendCSV(frame *Frame, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return WriteCSV(frame, path)
	}

	header, err := readHeader(path)
	if err != nil {
		return err
	}

	indices := make([]int, len(header))
	for i, name := range header {
		indices[i] = frame.Col(name)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	for _, row := range frame.Rows {
		record := make([]string, len(header))
		for i, srcIdx := range indices {
			if srcIdx >= 0 && srcIdx < len(row) {
				record[i] = row[srcIdx]
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func readHeader(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return header, nil
}

func padded(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
