package engine

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPageTexts pulls the plain text of every page, in order. Pages whose
// text cannot be decoded come back empty instead of failing the whole
// conversion; scanned pages simply have no extractable text.
func extractPageTexts(pdfPath string) ([]string, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

// renderDocx assembles a minimal OOXML word-processing package with one
// heading per source page, the page's text split into paragraphs and a page
// break between pages. The three required parts are written directly into
// the zip container.
func renderDocx(pages []string) ([]byte, error) {
	var body strings.Builder
	for i, text := range pages {
		writeHeading(&body, fmt.Sprintf("Page %d", i+1))
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			writeParagraph(&body, para)
		}
		if i < len(pages)-1 {
			body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		}
	}

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name, content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", document},
	}
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", entry.name, err)
		}
		if _, err := w.Write([]byte(entry.content)); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize docx package: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeading(b *strings.Builder, text string) {
	b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t xml:space="preserve">`)
	b.WriteString(escapeXML(text))
	b.WriteString(`</w:t></w:r></w:p>`)
}

func writeParagraph(b *strings.Builder, text string) {
	b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
	b.WriteString(escapeXML(text))
	b.WriteString(`</w:t></w:r></w:p>`)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`
