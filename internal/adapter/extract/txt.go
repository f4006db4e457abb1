package extract

import (
	"os"
	"strings"

	"docrag/internal/domain"
)

// extractTxt reads a plain-text file as UTF-8, dropping invalid bytes.
func extractTxt(path string) ([]domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := strings.ToValidUTF8(string(data), "")
	if !hasMinContent(text) {
		return nil, nil
	}

	return []domain.Record{{Source: path, Text: text}}, nil
}
