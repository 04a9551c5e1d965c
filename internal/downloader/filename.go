package downloader

import (
	"regexp"
	"strings"

	"github.com/conectasei/core/internal/models"
)

// reservedChars matches filesystem-reserved characters across the
// platforms the object store's canonical path needs to survive
// (Windows reserves more than POSIX; sanitizing for the union is
// cheap insurance for a key that never gets reinterpreted as a path
// once it reaches S3, but a document type string pasted verbatim from
// upstream HTML should never be trusted as one).
var reservedChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// sanitizeDocumentType strips filesystem-reserved characters from a
// document type label and collapses surrounding whitespace, so it can
// be safely prepended to a filename.
func sanitizeDocumentType(docType string) string {
	cleaned := reservedChars.ReplaceAllString(docType, "")
	return strings.TrimSpace(cleaned)
}

// isBareDocumentNumber reports whether filename (without extension) is
// nothing but the 8-digit document number, the case that needs the
// document type prepended per the upstream's occasional bare-number
// download naming.
func isBareDocumentNumber(filename string) bool {
	name := strings.TrimSuffix(filename, filenameExt(filename))
	return models.DocumentNumberPattern.MatchString(name)
}

func filenameExt(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[i:]
	}
	return ""
}

// renameForUpload applies the documented rename rule: if the
// downloaded filename is purely the 8-digit document number, the
// sanitized document type is prepended. Otherwise the filename is
// returned unchanged.
func renameForUpload(filename, docType string) string {
	if !isBareDocumentNumber(filename) {
		return filename
	}
	sanitizedType := sanitizeDocumentType(docType)
	if sanitizedType == "" {
		return filename
	}
	return sanitizedType + "_" + filename
}

// isHTML reports whether filename's extension marks it as HTML, the
// case the upstream occasionally returns in lieu of a PDF.
func isHTML(filename string) bool {
	ext := strings.ToLower(filenameExt(filename))
	return ext == ".html" || ext == ".htm"
}

func withPDFExt(filename string) string {
	ext := filenameExt(filename)
	return strings.TrimSuffix(filename, ext) + ".pdf"
}
