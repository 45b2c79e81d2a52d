package textlayer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// parseDocx pulls the text runs out of word/document.xml. Paragraphs
// become lines; tabs and explicit breaks survive.
func parseDocx(data []byte) (string, error) {
	content, err := readZipEntry(data, "word/document.xml")
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	return walkWordprocessingXML(content)
}

// parseODT pulls text paragraphs and headings out of content.xml.
func parseODT(data []byte) (string, error) {
	content, err := readZipEntry(data, "content.xml")
	if err != nil {
		return "", fmt.Errorf("odt: %w", err)
	}
	return walkODFXML(content)
}

func readZipEntry(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("entry %s not found", name)
}

func walkWordprocessingXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func walkODFXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var b strings.Builder
	depth := 0 // nesting inside text:p or text:h
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse content.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p", "h":
				depth++
			case "tab":
				if depth > 0 {
					b.WriteByte('\t')
				}
			case "line-break":
				if depth > 0 {
					b.WriteByte('\n')
				}
			case "s":
				if depth > 0 {
					b.WriteByte(' ')
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "h" {
				depth--
				b.WriteByte('\n')
			}
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
