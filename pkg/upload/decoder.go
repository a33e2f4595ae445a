package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// MaxSize bounds an uploaded document.
const MaxSize = 10 << 20

var (
	ErrEmpty     = errors.New("upload: file is empty")
	ErrTooLarge  = fmt.Errorf("upload: file exceeds %d bytes", MaxSize)
	ErrMalformed = errors.New("upload: content is not valid text")
)

type Encoding string

const (
	EncodingText   Encoding = "text"
	EncodingPDF    Encoding = "pdf"
	EncodingQuoted Encoding = "quoted"
)

// Document is an upload reduced to the text used as file context.
type Document struct {
	Name     string
	MIME     string
	Encoding Encoding
	Content  string
}

// Malformed reports whether the content is a best-effort quoted rendering.
func (d Document) Malformed() bool {
	return d.Encoding == EncodingQuoted
}

// Decode turns raw upload bytes into text: PDFs through text extraction,
// valid UTF-8 verbatim, anything else as a quoted byte string.
func Decode(name string, data []byte) (Document, error) {
	if len(data) == 0 {
		return Document{}, ErrEmpty
	}
	if len(data) > MaxSize {
		return Document{}, ErrTooLarge
	}

	mime := mimetype.Detect(data)
	doc := Document{Name: name, MIME: mime.String()}

	if mime.Is("application/pdf") {
		if text, err := extractPDF(data); err == nil && strings.TrimSpace(text) != "" {
			doc.Encoding = EncodingPDF
			doc.Content = text
			return doc, nil
		}
	}

	if utf8.Valid(data) {
		doc.Encoding = EncodingText
		doc.Content = string(data)
		return doc, nil
	}

	doc.Encoding = EncodingQuoted
	doc.Content = fmt.Sprintf("%q", data)
	return doc, nil
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some corrupt object streams
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
