// Package extract pulls plain text out of uploaded resume files. TXT
// passes through, DOCX and PDF go through format parsers. Empty
// extracted text is an error: downstream scoring on an empty document
// is meaningless.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	apperrors "resumatch/internal/errors"
)

// Result is extracted resume text plus the detected source kind.
type Result struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

// Supported source kinds.
const (
	KindTXT  = "txt"
	KindDOCX = "docx"
	KindPDF  = "pdf"
)

// KindForFilename maps a filename to a supported kind, or "" when the
// extension is not in the allow-list.
func KindForFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text", ".md", ".markdown":
		return KindTXT
	case ".docx":
		return KindDOCX
	case ".pdf":
		return KindPDF
	default:
		return ""
	}
}

// FromBytes extracts text from a resume file held in memory.
func FromBytes(filename string, data []byte) (Result, error) {
	kind := KindForFilename(filename)
	if kind == "" {
		return Result{}, apperrors.NewValidationError(apperrors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("Unsupported resume format %q (supported: txt, docx, pdf)", filepath.Ext(filename)), nil)
	}

	var text string
	var err error
	switch kind {
	case KindTXT:
		text = string(data)
	case KindDOCX:
		text, err = docxText(data)
	case KindPDF:
		text, err = pdfText(data)
	}
	if err != nil {
		return Result{}, apperrors.NewIOError(apperrors.ErrCodeExtractionFailed,
			fmt.Sprintf("Failed to extract text from %s file", kind), err)
	}

	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return Result{}, apperrors.NewIOError(apperrors.ErrCodeExtractionFailed,
			fmt.Sprintf("No text could be extracted from %s file", kind), nil)
	}

	return Result{Text: text, Kind: kind}, nil
}

// docxText parses a DOCX archive and flattens its document XML to
// plain text, one paragraph per line.
func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return docxXMLToText(doc.Editable().GetContent()), nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// docxXMLToText converts WordprocessingML to plain text: paragraph
// ends become newlines, tabs survive, every other tag is dropped.
func docxXMLToText(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = strings.ReplaceAll(content, "<w:tab/>", "\t")
	content = xmlTagPattern.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, " ", " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// pdfText extracts the plain text stream of every page.
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	stream, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, stream); err != nil {
		return "", fmt.Errorf("failed to read pdf text stream: %w", err)
	}
	return buf.String(), nil
}
