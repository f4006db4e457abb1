// Package extract converts input documents (pdf, txt, docx) into text
// records. PDF extraction is page-granular with an OCR fallback for
// scanned documents; txt and docx yield one record per file.
package extract

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"docrag/config"
	"docrag/internal/domain"
)

// minTokens is the minimum number of whitespace-separated tokens a
// record needs to be kept. Measured as space count, so a record needs
// 21 words; thinner content is noise.
const minTokens = 20

var inputPatterns = []string{"*.pdf", "*.txt", "*.docx"}

// Extractor dispatches files to the format-specific extraction path.
type Extractor struct {
	ocr *OCR
}

// New creates an extractor using the given OCR tool configuration.
func New(ocrCfg config.OCRConfig) *Extractor {
	return &Extractor{ocr: NewOCR(ocrCfg)}
}

// ListInputs globs the document directory for supported input files.
func ListInputs(dir string) ([]string, error) {
	var files []string
	for _, pattern := range inputPatterns {
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// Extract returns the usable text records for one file.
func (e *Extractor) Extract(path string) ([]domain.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return extractTxt(path)
	case ".docx":
		return extractDocx(path)
	default:
		return e.extractPDF(path)
	}
}

// ExtractAll runs extraction over every file, skipping files that fail.
// Returns domain.ErrNoInputFiles when the batch is empty.
func (e *Extractor) ExtractAll(dir string) ([]domain.Record, error) {
	files, err := ListInputs(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ErrNoInputFiles
	}

	var records []domain.Record
	for _, path := range files {
		recs, err := e.Extract(path)
		if err != nil {
			log.Warn("extraction failed, skipping file", "file", filepath.Base(path), "error", err)
			continue
		}
		records = append(records, recs...)
	}

	log.Info("extraction complete", "files", len(files), "records", len(records))
	return records, nil
}

// hasMinContent reports whether text clears the minimal-content bar.
func hasMinContent(text string) bool {
	return strings.Count(text, " ") >= minTokens
}
