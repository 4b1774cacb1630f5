package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"contract-assistant/internal/models"
)

// FileLoader adapts Load to the loader seam the assistant consumes.
type FileLoader struct{}

func (FileLoader) Load(path string) ([]models.Section, error) {
	return Load(path)
}

// Load extracts the text of an uploaded document, one Section per PDF page
// or DOCX paragraph. The empty-file check runs before any extraction so a
// truncated upload never reaches a parser.
func Load(filePath string) ([]models.Section, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyFile, filepath.Base(filePath))
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return loadPDF(filePath)
	case ".docx":
		return loadDOCX(filePath)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, ext)
	}
}

func loadPDF(filePath string) ([]models.Section, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}

	source := filepath.Base(filePath)
	var sections []models.Section
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		sections = append(sections, models.Section{
			Content:    pageText,
			PageNumber: i,
			SourceName: source,
		})
	}
	return sections, nil
}

func loadDOCX(filePath string) ([]models.Section, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	source := filepath.Base(filePath)

	var sections []models.Section
	for i, para := range strings.Split(content, "</w:p>") {
		text := strings.TrimSpace(extractRuns(para))
		if text == "" {
			continue
		}
		sections = append(sections, models.Section{
			Content:    text,
			PageNumber: i + 1, // DOCX has no pages, paragraph ordinal instead
			SourceName: source,
		})
	}
	return sections, nil
}

// extractRuns pulls the text runs (<w:t> elements) out of a raw chunk of
// document.xml. The element may carry attributes such as xml:space.
func extractRuns(xmlContent string) string {
	var text strings.Builder
	rest := xmlContent
	for {
		start := strings.Index(rest, "<w:t")
		if start < 0 {
			break
		}
		rest = rest[start+len("<w:t"):]
		open := strings.Index(rest, ">")
		if open < 0 {
			break
		}
		// Self-closing empty run.
		if strings.HasSuffix(rest[:open], "/") {
			rest = rest[open+1:]
			continue
		}
		rest = rest[open+1:]
		end := strings.Index(rest, "</w:t>")
		if end < 0 {
			break
		}
		text.WriteString(unescapeXML(rest[:end]))
		rest = rest[end+len("</w:t>"):]
	}
	return text.String()
}

func unescapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(s)
}
