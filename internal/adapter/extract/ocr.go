package extract

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"docrag/config"
	"docrag/internal/domain"
)

// OCR shells out to pdftoppm and tesseract to recover text from
// scanned PDFs. Both tools are external collaborators; their locations
// come from configuration.
type OCR struct {
	cfg config.OCRConfig
}

// NewOCR creates an OCR runner from tool configuration.
func NewOCR(cfg config.OCRConfig) *OCR {
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = "tesseract"
	}
	if cfg.PdftoppmPath == "" {
		cfg.PdftoppmPath = "pdftoppm"
	}
	return &OCR{cfg: cfg}
}

// PDF renders each page to an image and OCRs it, one record per page
// that clears the minimal-content bar. A page that fails OCR is
// skipped, not fatal.
func (o *OCR) PDF(path string) ([]domain.Record, error) {
	tmpDir, err := os.MkdirTemp("", "docrag-ocr-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.Command(o.cfg.PdftoppmPath, "-r", fmt.Sprint(o.cfg.DPI), "-png", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %v: %s", err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(images)
	if len(images) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages for %s", path)
	}

	var records []domain.Record
	for i, img := range images {
		text, err := o.Image(img)
		if err != nil {
			log.Warn("ocr failed for page", "file", path, "page", i+1, "error", err)
			continue
		}
		if !hasMinContent(text) {
			continue
		}
		pageNum := i
		records = append(records, domain.Record{
			Source: path,
			Page:   &pageNum,
			Text:   text,
		})
	}

	return records, nil
}

// Image runs tesseract over a single image and returns the raw text.
func (o *OCR) Image(path string) (string, error) {
	cmd := exec.Command(o.cfg.TesseractPath, path, "stdout", "-l", o.cfg.Language)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
