package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// DocumentFormat is the declared format of a source document.
type DocumentFormat string

const (
	FormatText        DocumentFormat = "text"
	FormatPDF         DocumentFormat = "pdf"
	FormatSpreadsheet DocumentFormat = "spreadsheet"
)

// RawDocument is the parsed text of one invoice document. Parsing from
// binary formats happens upstream; the pipeline only sees the text.
type RawDocument struct {
	Filename string
	Format   DocumentFormat
	Content  []byte
}

// Text returns the document content as a string.
func (d *RawDocument) Text() string {
	return string(d.Content)
}

// Checksum returns a stable content hash, used as the result cache key.
func (d *RawDocument) Checksum() string {
	h := sha256.New()
	h.Write([]byte(d.Format))
	h.Write([]byte{0})
	h.Write(d.Content)

	return hex.EncodeToString(h.Sum(nil))
}
