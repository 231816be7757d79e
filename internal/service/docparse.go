package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ValidationError marks a rejected upload. Handlers map it to HTTP 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// DocumentParser extracts plain text from uploaded CV files. Supported
// formats are PDF and DOCX, identified by magic-byte sniffing rather than
// the declared Content-Type so spoofed uploads are rejected.
type DocumentParser struct {
	maxBytes int64
}

func NewDocumentParser(maxUploadMB int) *DocumentParser {
	return &DocumentParser{maxBytes: int64(maxUploadMB) * 1024 * 1024}
}

// ExtractText validates the upload and returns its trimmed text content.
// The declared content type and filename are used only for error messages;
// format detection trusts the bytes.
func (p *DocumentParser) ExtractText(data []byte, declaredType, filename string) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Reason: "uploaded file is empty"}
	}
	if int64(len(data)) > p.maxBytes {
		return "", &ValidationError{Reason: fmt.Sprintf("file exceeds the %dMB upload limit", p.maxBytes/(1024*1024))}
	}

	detected := mimetype.Detect(data)

	var (
		text string
		err  error
	)
	switch {
	case detected.Is("application/pdf"):
		text, err = extractPDFText(data)
	case detected.Is(docxMIME):
		text, err = extractDOCXText(data)
	default:
		log.Debug().
			Str("declared", declaredType).
			Str("detected", detected.String()).
			Str("filename", filename).
			Msg("Rejected unsupported upload type")
		return "", &ValidationError{Reason: "unsupported file type: upload a PDF or DOCX document"}
	}
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ValidationError{Reason: "could not extract text from the file; it may be image-based or corrupted"}
	}
	return text, nil
}

func extractPDFText(data []byte) (string, error) {
	// Write to temp file — ledongthuc/pdf requires a file reader
	tmpFile, err := os.CreateTemp("", "cv-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if _, err := tmpFile.Write(data); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}

	f, reader, err := pdf.Open(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Int("page", i).Err(err).Msg("Failed to extract text from PDF page")
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return sb.String(), nil
}

// docxBody mirrors the parts of word/document.xml we care about: paragraphs
// containing text runs.
type docxBody struct {
	Paragraphs []struct {
		Runs []struct {
			Text string `xml:"t"`
		} `xml:"r"`
	} `xml:"body>p"`
}

// extractDOCXText reads word/document.xml from the OOXML zip container and
// joins paragraph text with newlines.
func extractDOCXText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening DOCX container: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("DOCX container has no word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("reading document.xml: %w", err)
	}

	var body docxBody
	if err := xml.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("parsing document.xml: %w", err)
	}

	var sb strings.Builder
	for _, p := range body.Paragraphs {
		var para strings.Builder
		for _, r := range p.Runs {
			para.WriteString(r.Text)
		}
		if para.Len() > 0 {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(para.String())
		}
	}

	return sb.String(), nil
}
