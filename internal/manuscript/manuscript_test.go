package manuscript

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestPDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, "Manuscript page")
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	inspector := NewInspector(0)

	t.Run("valid pdf is page counted", func(t *testing.T) {
		info, err := inspector.Inspect("paper.PDF", createTestPDF(t, 3))
		require.NoError(t, err)
		assert.Equal(t, ".pdf", info.Extension)
		assert.Equal(t, "application/pdf", info.ContentType)
		assert.Equal(t, 3, info.Pages)
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		_, err := inspector.Inspect("paper.pdf", []byte("%PDF-1.4 this is not really a pdf"))
		assert.ErrorIs(t, err, ErrInvalidPDF)
	})

	t.Run("docx is accepted without parsing", func(t *testing.T) {
		info, err := inspector.Inspect("paper.docx", []byte("PK\x03\x04 fake docx"))
		require.NoError(t, err)
		assert.Equal(t, 0, info.Pages)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := inspector.Inspect("paper.exe", []byte("MZ"))
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := inspector.Inspect("paper.doc", nil)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("too large", func(t *testing.T) {
		small := NewInspector(8)
		_, err := small.Inspect("paper.doc", []byte("123456789"))
		assert.ErrorIs(t, err, ErrTooLarge)
	})
}

func TestStorageKey(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	key := StorageKey("ICML 2025 / Main", "My Paper.PDF", now)

	assert.Regexp(t, regexp.MustCompile(`^papers/ICML_2025__Main/20250314_092653_[0-9a-f]{16}\.pdf$`), key)
	assert.NotEqual(t, key, StorageKey("ICML 2025 / Main", "My Paper.PDF", now))
	assert.Contains(t, StorageKey("   ", "x.doc", now), "papers/unsorted/")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("papers/a/b.pdf"))
	assert.Equal(t, "application/msword", ContentType("papers/a/b.DOC"))
	assert.Equal(t, "application/octet-stream", ContentType("papers/a/b"))
}
