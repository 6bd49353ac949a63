package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF is returned for files that do not start with a PDF header.
var ErrNotPDF = errors.New("not a PDF document")

var extraneousWhitespace = regexp.MustCompile(`[ \t\f\r]+`)

// Info describes a validated document.
type Info struct {
	Pages int
}

// Validate checks that path holds a readable PDF and returns its page count.
func Validate(path string) (Info, error) {
	if err := checkHeader(path); err != nil {
		return Info{}, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return Info{}, fmt.Errorf("failed to validate pdf: %w", err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get page count: %w", err)
	}
	if pages < 1 {
		return Info{}, fmt.Errorf("pdf has no pages")
	}
	return Info{Pages: pages}, nil
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return ErrNotPDF
		}
		return fmt.Errorf("failed to read pdf: %w", err)
	}
	if !bytes.Contains(head[:n], []byte("%PDF-")) {
		return ErrNotPDF
	}
	return nil
}

// PlainText extracts the text layer of the PDF at path without layout.
func PlainText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	text := extraneousWhitespace.ReplaceAllString(builder.String(), " ")
	return strings.TrimSpace(text), nil
}
