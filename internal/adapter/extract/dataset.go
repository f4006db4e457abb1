package extract

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"docrag/internal/domain"
)

// WriteDataset persists records as newline-delimited JSON. The file is
// rewritten wholesale; it is an intermediate artifact of ingestion,
// never patched incrementally.
func WriteDataset(path string, records []domain.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return w.Flush()
}

// ReadDataset loads records back from a newline-delimited JSON file.
// Blank lines are skipped; a malformed line is an error since the file
// is produced only by this system.
func ReadDataset(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []domain.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("malformed dataset line: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
