package document

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

const documentXMLContent = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph, </w:t></w:r><w:r><w:t>in two runs.</w:t></w:r></w:p>
    <w:p><w:r><w:t>   </w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t xml:space="preserve">  Second paragraph.  </w:t></w:r></w:p>
    <w:sectPr/>
  </w:body>
</w:document>`

func writeDocx(t *testing.T, path string, files map[string]string) {
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtract_Docx(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "essay.DOCX")
	writeDocx(t, path, map[string]string{
		"[Content_Types].xml": "<Types/>",
		"word/document.xml":   documentXMLContent,
	})
	paragraphs, err := Extract(path)
	assert.NoError(err)
	assert.Equal([]string{"First paragraph, in two runs.", "Second paragraph."}, paragraphs)

	missing := filepath.Join(dir, "empty.docx")
	writeDocx(t, missing, map[string]string{"docProps/core.xml": "<coreProperties/>"})
	_, err = Extract(missing)
	assert.ErrorIs(err, ErrInvalidDocument)

	broken := filepath.Join(dir, "broken.docx")
	writeDocx(t, broken, map[string]string{"word/document.xml": "<w:document><w:body>"})
	_, err = Extract(broken)
	assert.ErrorIs(err, ErrInvalidDocument)

	notZip := filepath.Join(dir, "text.docx")
	assert.NoError(os.WriteFile(notZip, []byte("not a zip"), 0644))
	_, err = Extract(notZip)
	assert.ErrorIs(err, ErrInvalidDocument)
}

func TestExtract_Text(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	assert.NoError(os.WriteFile(path, []byte("one\n\n  two  \r\n\t\nthree"), 0644))

	paragraphs, err := Extract(path)
	assert.NoError(err)
	assert.Equal([]string{"one", "two", "three"}, paragraphs)

	_, err = Extract(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(err)
}

func TestSplitParagraphs(t *testing.T) {
	assert := assert_.New(t)
	assert.Empty(SplitParagraphs(""))
	assert.Empty(SplitParagraphs("\n \n"))
	assert.Equal([]string{"a b", "c"}, SplitParagraphs(" a b \nc\n"))
}
