package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"

	"accord-ai/models"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"

	typePDF   = "PDF"
	typeWord  = "Word Document"
	typeText  = "Text"
	typeImage = "Image (OCR)"
)

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
}

// ExtractText pulls plain text out of an uploaded file. The MIME type is
// authoritative; the extension is consulted when the client sent a generic type.
func ExtractText(fileName, mimeType string, data []byte) (*models.Extraction, error) {
	mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	ext := strings.ToLower(filepath.Ext(fileName))

	var (
		extraction *models.Extraction
		err        error
	)
	switch {
	case mimeType == mimePDF || (isGenericMime(mimeType) && ext == ".pdf"):
		extraction, err = extractPDF(data)
	case mimeType == mimeDOC && !isZipArchive(data):
		// legacy binary .doc has no readable XML body
		return nil, fmt.Errorf("%w: legacy .doc files must be saved as .docx", ErrUnsupportedFileType)
	case mimeType == mimeDOCX || mimeType == mimeDOC || (isGenericMime(mimeType) && ext == ".docx"):
		extraction, err = extractDOCX(data)
	case imageMimes[mimeType] || (isGenericMime(mimeType) && imageExtensions[ext]):
		extraction, err = extractImage(data)
	case strings.HasPrefix(mimeType, "text/") || mimeType == "application/json" || (isGenericMime(mimeType) && textExtensions[ext]):
		extraction, err = extractPlain(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, displayType(mimeType))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", fileName, err)
	}

	if strings.TrimSpace(extraction.Text) == "" {
		return nil, ErrNoTextExtracted
	}
	return extraction, nil
}

func isGenericMime(mimeType string) bool {
	return mimeType == "" || mimeType == "application/octet-stream"
}

func isZipArchive(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func displayType(mimeType string) string {
	if mimeType == "" {
		return "unknown"
	}
	return mimeType
}

func extractPDF(data []byte) (*models.Extraction, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	var (
		text     strings.Builder
		warnings []string
	)
	pages := doc.NumPage()
	for i := 0; i < pages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i+1, err))
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(pageText)
	}

	return &models.Extraction{
		Text:     text.String(),
		Type:     typePDF,
		Pages:    pages,
		Warnings: warnings,
	}, nil
}

// extractDOCX reads the text runs of word/document.xml, one line per paragraph
func extractDOCX(data []byte) (*models.Extraction, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a DOCX archive: %w", err)
	}

	var document *zip.File
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return nil, fmt.Errorf("word/document.xml not found")
	}

	rc, err := document.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	text, err := docxText(rc)
	if err != nil {
		return nil, err
	}
	return &models.Extraction{Text: text, Type: typeWord}, nil
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		out       strings.Builder
		inText    bool
		paragraph bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("invalid document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if paragraph {
					out.WriteString("\n")
				}
				paragraph = true
			case "t":
				inText = true
			case "tab":
				out.WriteString("\t")
			case "br", "cr":
				out.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}

func extractPlain(data []byte) (*models.Extraction, error) {
	var warnings []string
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("�"))
		warnings = append(warnings, "invalid UTF-8 sequences were replaced")
	}
	return &models.Extraction{
		Text:     string(data),
		Type:     typeText,
		Warnings: warnings,
	}, nil
}
