package engine

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readZipEntry(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("zip entry %s not found", name)
	return ""
}

func TestRenderDocxPackageShape(t *testing.T) {
	data, err := renderDocx([]string{"First page text.", "Second page text."})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("PK\x03\x04")), "docx must be a zip archive")

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	types := readZipEntry(t, zr, "[Content_Types].xml")
	assert.Contains(t, types, "wordprocessingml.document.main+xml")

	rels := readZipEntry(t, zr, "_rels/.rels")
	assert.Contains(t, rels, `Target="word/document.xml"`)

	doc := readZipEntry(t, zr, "word/document.xml")
	assert.Contains(t, doc, "First page text.")
	assert.Contains(t, doc, "Second page text.")
	assert.Contains(t, doc, ">Page 1<")
	assert.Contains(t, doc, ">Page 2<")
	assert.Equal(t, 1, bytes.Count([]byte(doc), []byte(`<w:br w:type="page"/>`)),
		"one break between two pages")
}

func TestRenderDocxSplitsParagraphs(t *testing.T) {
	data, err := renderDocx([]string{"First paragraph.\n\nSecond paragraph.\n\n\n\n"})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	doc := readZipEntry(t, zr, "word/document.xml")

	// Heading plus two body paragraphs; blank chunks produce nothing.
	assert.Equal(t, 3, bytes.Count([]byte(doc), []byte("<w:p>")))
	assert.NotContains(t, doc, `<w:t xml:space="preserve"></w:t>`)
}

func TestRenderDocxEmptyPageKeepsHeading(t *testing.T) {
	data, err := renderDocx([]string{""})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	doc := readZipEntry(t, zr, "word/document.xml")
	assert.Contains(t, doc, ">Page 1<")
	assert.NotContains(t, doc, `<w:br w:type="page"/>`)
}

func TestRenderDocxEscapesMarkup(t *testing.T) {
	data, err := renderDocx([]string{`Fees < 5% & "rates" > 3%`})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	doc := readZipEntry(t, zr, "word/document.xml")
	assert.Contains(t, doc, "Fees &lt; 5% &amp; &#34;rates&#34; &gt; 3%")
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &lt; b", escapeXML("a < b"))
	assert.Equal(t, "a &amp; b", escapeXML("a & b"))
	assert.Equal(t, "plain", escapeXML("plain"))
}
