package extract

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/ledongthuc/pdf"

	"docrag/internal/domain"
)

// extractPDF tries the text layer first, one record per usable page.
// When no page yields usable text (scanned or image-only document) it
// falls back to rendering pages and running OCR.
func (e *Extractor) extractPDF(path string) ([]domain.Record, error) {
	records, err := pdfTextLayer(path)
	if err != nil {
		log.Warn("pdf text extraction failed, trying OCR", "file", path, "error", err)
	}
	if len(records) > 0 {
		return records, nil
	}

	ocrRecords, ocrErr := e.ocr.PDF(path)
	if ocrErr != nil {
		if err != nil {
			return nil, fmt.Errorf("text layer: %v; ocr: %w", err, ocrErr)
		}
		return nil, fmt.Errorf("ocr failed: %w", ocrErr)
	}
	if len(ocrRecords) > 0 {
		log.Info("used OCR fallback", "file", path, "pages", len(ocrRecords))
	}
	return ocrRecords, nil
}

// pdfTextLayer extracts the embedded text layer page by page.
func pdfTextLayer(path string) ([]domain.Record, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var records []domain.Record
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn("skipping unreadable pdf page", "file", path, "page", i, "error", err)
			continue
		}
		if !hasMinContent(text) {
			continue
		}

		pageNum := i - 1 // 0-based, display adds 1
		records = append(records, domain.Record{
			Source: path,
			Page:   &pageNum,
			Text:   text,
		})
	}

	return records, nil
}
