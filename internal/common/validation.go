package common

import (
	"fmt"
	"slices"
	"strings"

	"resumatch/internal/extract"
	"resumatch/internal/utils"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ValidateDocumentFile checks that a filename has an extension the text
// extractor can handle
func ValidateDocumentFile(filename string) error {
	if extract.KindForFilename(filename) == "" {
		return fmt.Errorf("unsupported document format '%s' for %s (expected txt, md, docx or pdf)",
			strings.TrimPrefix(utils.GetFileExtension(filename), "."), filename)
	}
	return nil
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}
