package normalize

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ExtractDocumentText pulls paragraph text out of a .docx archive. Each
// word-processing paragraph becomes one line; runs within a paragraph are
// concatenated and explicit breaks become newlines. Also used by the
// builtin PDF converter to recover the rendered report text.
func ExtractDocumentText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a valid docx archive: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("archive has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return paragraphText(rc)
}

// paragraphText walks the document XML token stream, collecting text runs
// per paragraph. Streaming keeps memory proportional to the text, not the
// markup.
func paragraphText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "br", "cr":
				current.WriteString("\n")
			case "tab":
				current.WriteString("\t")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, strings.TrimRight(current.String(), " "))
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	var out []string
	for _, p := range paragraphs {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n"), nil
}
