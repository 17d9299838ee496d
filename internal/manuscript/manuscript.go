// Package manuscript checks uploaded paper files before they are stored.
package manuscript

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultMaxBytes is the upload limit used when none is configured.
const DefaultMaxBytes int64 = 16 << 20

var (
	ErrEmpty           = errors.New("file is empty")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrInvalidPDF      = errors.New("invalid PDF")
)

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func init() {
	// Keep pdfcpu from creating a config directory under $HOME.
	model.ConfigPath = "disable"
}

// Info describes an accepted manuscript.
type Info struct {
	Extension   string `json:"extension"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Pages       int    `json:"pages,omitempty"`
}

type Inspector struct {
	maxBytes int64
	conf     *model.Configuration
}

func NewInspector(maxBytes int64) *Inspector {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Inspector{maxBytes: maxBytes, conf: model.NewDefaultConfiguration()}
}

// MaxBytes is the largest accepted upload.
func (i *Inspector) MaxBytes() int64 {
	return i.maxBytes
}

// Inspect validates an upload by extension and size. PDFs are additionally
// parsed so a corrupt file is refused and its page count recorded.
func (i *Inspector) Inspect(filename string, data []byte) (*Info, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	size := int64(len(data))
	if size == 0 {
		return nil, ErrEmpty
	}
	if size > i.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, i.maxBytes)
	}

	info := &Info{Extension: ext, ContentType: contentType, Size: size}
	if ext != ".pdf" {
		return info, nil
	}

	if err := api.Validate(bytes.NewReader(data), i.conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	pages, err := countPages(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	info.Pages = pages
	return info, nil
}

func countPages(data []byte) (pages int, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading page tree: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// StorageKey builds the object key for a manuscript:
// papers/<conference>/<timestamp>_<random><ext>.
func StorageKey(conference, filename string, now time.Time) string {
	folder := unsafeChars.ReplaceAllString(strings.ReplaceAll(strings.TrimSpace(conference), " ", "_"), "")
	if folder == "" {
		folder = "unsorted"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("papers/%s/%s_%s%s", folder, now.UTC().Format("20060102_150405"), random, ext)
}

// ContentType returns the MIME type for a stored key, defaulting to
// application/octet-stream.
func ContentType(key string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}
