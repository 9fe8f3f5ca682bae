// Package document extracts paragraphs of text from local documents (.docx and plain text).
package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidDocument = errors.New("invalid document")

// Extract returns the non-empty paragraphs of the document at path, trimmed, in order. Files ending in .docx are
// read as Word documents; anything else as UTF-8 text.
func Extract(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".docx") {
		return ExtractDocx(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return SplitParagraphs(string(content)), nil
}

// ExtractDocx returns the paragraphs of the body of a Word document.
func ExtractDocx(path string) ([]string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
		}
		return parseDocumentXML(content)
	}
	return nil, fmt.Errorf("%w: %s has no word/document.xml", ErrInvalidDocument, path)
}

// SplitParagraphs splits text into lines, dropping blank ones.
func SplitParagraphs(text string) []string {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return paragraphs
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(content []byte) ([]string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var paragraphs []string
	for _, para := range doc.Body.Paragraphs {
		var text strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				text.WriteString(t.Content)
			}
		}
		if s := strings.TrimSpace(text.String()); s != "" {
			paragraphs = append(paragraphs, s)
		}
	}
	return paragraphs, nil
}
