// Package document normalises uploaded receipts and policy files into
// something a vision model accepts.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/garyjia/expense-wizard/internal/application/port"
)

var (
	// ErrUnsupportedDocument is returned for file types the wizard does not accept
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrTooLarge is returned when an upload exceeds the configured limit
	ErrTooLarge = errors.New("document too large")

	// ErrEmpty is returned for zero-byte uploads
	ErrEmpty = errors.New("document is empty")
)

// Kind groups accepted MIME types by how they are sent to a model
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindPDF
	KindText
)

var extensions = map[string]Kind{
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".heic": KindImage,
	".heif": KindImage,
	".txt":  KindText,
}

// KindOf classifies a MIME type
func KindOf(mimeType string) Kind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch {
	case mimeType == "application/pdf":
		return KindPDF
	case mimeType == "text/plain":
		return KindText
	case mimeType == "image/png", mimeType == "image/jpeg", mimeType == "image/gif",
		mimeType == "image/heic", mimeType == "image/heif",
		mimeType == "image/heic-sequence", mimeType == "image/heif-sequence":
		return KindImage
	}
	return KindUnknown
}

// Normalizer validates uploads and fills in their content type
type Normalizer struct {
	maxBytes int64
}

// NewNormalizer creates a normalizer rejecting uploads above maxBytes; zero disables the limit
func NewNormalizer(maxBytes int64) *Normalizer {
	return &Normalizer{maxBytes: maxBytes}
}

// MaxBytes returns the configured size limit
func (n *Normalizer) MaxBytes() int64 {
	return n.maxBytes
}

// Normalize checks size and type and returns the document with a sniffed
// MIME type. The declared content type is only trusted when sniffing
// cannot tell, which is how HEIC and plain text usually arrive.
func (n *Normalizer) Normalize(name, declared string, data []byte) (port.Document, error) {
	if len(data) == 0 {
		return port.Document{}, ErrEmpty
	}
	if n.maxBytes > 0 && int64(len(data)) > n.maxBytes {
		return port.Document{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), n.maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := extensions[ext]; ext != "" && !ok {
		return port.Document{}, fmt.Errorf("%w: %s", ErrUnsupportedDocument, ext)
	}

	mimeType := detect(data, declared, ext)
	if KindOf(mimeType) == KindUnknown {
		return port.Document{}, fmt.Errorf("%w: %s", ErrUnsupportedDocument, mimeType)
	}

	return port.Document{Name: filepath.Base(name), MIMEType: mimeType, Data: data}, nil
}

func detect(data []byte, declared, ext string) string {
	if isHEIC(data) {
		return "image/heic"
	}

	sniffed := mimetype.Detect(data)
	for m := sniffed; m != nil; m = m.Parent() {
		if KindOf(m.String()) != KindUnknown {
			return strings.ToLower(strings.SplitN(m.String(), ";", 2)[0])
		}
	}

	if KindOf(declared) != KindUnknown {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	if kind, ok := extensions[ext]; ok && kind == KindText {
		return "text/plain"
	}
	return sniffed.String()
}

// isHEIC checks the ftyp box brand used by HEIC/HEIF containers
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}
