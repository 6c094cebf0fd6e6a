// Package extract reads syllabus PDFs into per-page text and at most one table per page.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/hyperjump/silabo/internal/syllabus"
)

// ErrFileTooLarge is returned for files above the configured size limit.
var ErrFileTooLarge = errors.New("file too large")

// Extractor turns a document into the pages the syllabus parser consumes.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]syllabus.Page, error)
}

// PDFExtractor extracts page text and the page table grid from PDF files.
type PDFExtractor struct {
	maxFileSize int64
	validate    bool
	logger      *zap.Logger
}

// Option configures a PDFExtractor.
type Option func(*PDFExtractor)

// WithMaxFileSize rejects files larger than n bytes. Zero disables the check.
func WithMaxFileSize(n int64) Option {
	return func(e *PDFExtractor) { e.maxFileSize = n }
}

// WithValidation runs a relaxed structural validation before decoding.
func WithValidation(enabled bool) Option {
	return func(e *PDFExtractor) { e.validate = enabled }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *PDFExtractor) { e.logger = l }
}

// NewPDFExtractor returns a PDF extractor. Validation is on by default.
func NewPDFExtractor(opts ...Option) *PDFExtractor {
	e := &PDFExtractor{validate: true, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the file at path and returns one Page per PDF page, in order.
func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]syllabus.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if e.maxFileSize > 0 && info.Size() > e.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, path, info.Size(), e.maxFileSize)
	}
	if e.validate {
		pages, err := Validate(path)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("pdf validated", zap.String("path", path), zap.Int("pages", pages))
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	pages := make([]syllabus.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, syllabus.Page{Number: i})
			continue
		}
		p, err := e.readPage(page, i)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func (e *PDFExtractor) readPage(page pdf.Page, number int) (syllabus.Page, error) {
	content, ok := pageContent(page)
	if !ok {
		// The content stream could not be interpreted geometrically; keep the plain text.
		text, err := page.GetPlainText(nil)
		if err != nil {
			return syllabus.Page{}, err
		}
		e.logger.Debug("page geometry unavailable", zap.Int("page", number))
		return syllabus.Page{Number: number, Text: text}, nil
	}
	return syllabus.Page{
		Number: number,
		Text:   PageText(content.Text),
		Table:  BuildTable(content.Text, content.Rect),
	}, nil
}

// pageContent recovers from panics raised by malformed content streams.
func pageContent(page pdf.Page) (c pdf.Content, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return page.Content(), true
}
