package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"

	"github.com/garyjia/expense-wizard/internal/application/port"
)

// DefaultMaxPages bounds how many PDF pages are rendered for one request
const DefaultMaxPages = 2

// Image is one PNG-encoded page ready to be sent to a vision model
type Image struct {
	MIMEType string
	Data     []byte
}

// ToImages renders a document as PNG pages. PNG input passes through;
// other images are re-encoded; PDFs render up to maxPages pages.
func ToImages(doc port.Document, maxPages int) ([]Image, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	switch KindOf(doc.MIMEType) {
	case KindPDF:
		return renderPDF(doc.Data, maxPages)
	case KindImage:
		if doc.MIMEType == "image/png" && !isHEIC(doc.Data) {
			return []Image{{MIMEType: "image/png", Data: doc.Data}}, nil
		}
		data, err := imageToPNG(doc.Data, doc.MIMEType)
		if err != nil {
			return nil, err
		}
		return []Image{{MIMEType: "image/png", Data: data}}, nil
	default:
		return nil, fmt.Errorf("%w: %s cannot be rendered as an image", ErrUnsupportedDocument, doc.MIMEType)
	}
}

// Text returns the body of a plain-text document
func Text(doc port.Document) (string, bool) {
	if KindOf(doc.MIMEType) != KindText {
		return "", false
	}
	return string(doc.Data), true
}

func renderPDF(data []byte, maxPages int) ([]Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages > maxPages {
		pages = maxPages
	}

	images := make([]Image, 0, pages)
	for i := 0; i < pages; i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i, err)
		}
		encoded, err := encodePNG(img)
		if err != nil {
			return nil, err
		}
		images = append(images, Image{MIMEType: "image/png", Data: encoded})
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	return images, nil
}

func imageToPNG(data []byte, mimeType string) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	if isHEIC(data) || mimeType == "image/heic" || mimeType == "image/heif" {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
