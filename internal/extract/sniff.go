package extract

import (
	"bytes"
	"path/filepath"
	"strings"
)

// FileKind is the pipeline's view of a file type after reconciling the
// declared MIME type with the content's magic bytes.
type FileKind string

const (
	KindPDF          FileKind = "pdf"
	KindDocx         FileKind = "docx"
	KindODT          FileKind = "odt"
	KindText         FileKind = "text"
	KindImage        FileKind = "image"
	KindLegacyOffice FileKind = "legacy_office"
	KindUnknown      FileKind = "unknown"
)

// ResolveKind determines the effective file kind. Magic bytes win over
// the declared type: upload plumbing routinely declares
// application/octet-stream for everything.
func ResolveKind(data []byte, declaredMIME, filename string) FileKind {
	if kind := sniffMagicBytes(data, filename); kind != KindUnknown {
		return kind
	}
	if kind := kindFromMIME(declaredMIME); kind != KindUnknown {
		return kind
	}
	return kindFromExtension(filename)
}

// sniffMagicBytes detects the file kind from content magic bytes.
func sniffMagicBytes(data []byte, filename string) FileKind {
	if len(data) < 4 {
		return KindUnknown
	}

	// PDF: %PDF-
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return KindPDF
	}

	// PNG / JPEG / GIF / TIFF / BMP / WebP
	switch {
	case len(data) >= 8 && bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return KindImage
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return KindImage
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return KindImage
	case bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}), bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return KindImage
	case bytes.HasPrefix(data, []byte("BM")):
		return KindImage
	case len(data) > 12 && bytes.HasPrefix(data, []byte("RIFF")) && string(data[8:12]) == "WEBP":
		return KindImage
	}

	// ZIP container: Office XML formats and ODT declare themselves by
	// their first archive entry or by extension.
	if bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04}) {
		head := data[:min(256, len(data))]
		if bytes.Contains(head, []byte("mimetypeapplication/vnd.oasis.opendocument.text")) {
			return KindODT
		}
		if bytes.Contains(head, []byte("word/")) || bytes.Contains(head, []byte("[Content_Types].xml")) {
			return KindDocx
		}
		// Fall back to the extension for archives whose first entry is
		// uninformative.
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".docx":
			return KindDocx
		case ".odt":
			return KindODT
		}
		return KindUnknown
	}

	// MS Office legacy container (DOC, XLS, PPT): no backend handles
	// these, surfaced as UnsupportedFormat by the orchestrator.
	if len(data) >= 8 && bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}) {
		return KindLegacyOffice
	}

	return KindUnknown
}

func kindFromMIME(mime string) FileKind {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "application/pdf":
		return KindPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return KindDocx
	case "application/vnd.oasis.opendocument.text":
		return KindODT
	case "text/plain", "text/markdown", "text/csv", "application/json", "text/html":
		return KindText
	case "application/msword":
		return KindLegacyOffice
	}
	if strings.HasPrefix(mime, "image/") {
		return KindImage
	}
	if strings.HasPrefix(mime, "text/") {
		return KindText
	}
	return KindUnknown
}

func kindFromExtension(filename string) FileKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDocx
	case ".odt":
		return KindODT
	case ".txt", ".md", ".markdown", ".csv", ".log":
		return KindText
	case ".png", ".jpg", ".jpeg", ".gif", ".tif", ".tiff", ".bmp", ".webp":
		return KindImage
	case ".doc", ".xls", ".ppt":
		return KindLegacyOffice
	}
	return KindUnknown
}
