package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"contract-assistant/internal/models"
)

const sectionSeparator = "\n\n"

// Chunker splits extracted document text into overlapping windows sized
// for embedding. Splitting is deterministic for identical input.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split concatenates the sections and cuts the text into overlapping
// chunks, preferring paragraph and sentence boundaries. Each chunk keeps
// the page number of the section its text starts in.
func (c *Chunker) Split(sections []models.Section) ([]models.Chunk, error) {
	var parts []string
	for _, s := range sections {
		if strings.TrimSpace(s.Content) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(s.Content))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	full := strings.Join(parts, sectionSeparator)

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.chunkSize),
		textsplitter.WithChunkOverlap(c.chunkOverlap),
	)
	pieces, err := splitter.SplitText(full)
	if err != nil || len(pieces) == 0 {
		// Hard character cut as a fallback when the splitter cannot
		// place a boundary.
		pieces = hardCut(full, c.chunkSize, c.chunkOverlap)
	}

	pages := pageOffsets(sections)
	var chunks []models.Chunk
	searchFrom := 0
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		// Locate the chunk in the source text to attribute a page;
		// overlapping chunks move the search window forward so repeated
		// text resolves to successive occurrences.
		offset := strings.Index(full[searchFrom:], piece)
		page := 1
		if offset >= 0 {
			page = pageAt(pages, searchFrom+offset)
			searchFrom += offset + 1
		}
		chunks = append(chunks, models.Chunk{
			Content:    piece,
			PageNumber: page,
			ChunkID:    len(chunks) + 1,
		})
	}
	return chunks, nil
}

// hardCut windows the content by character count with overlap. Cuts land
// on rune boundaries so multi-byte text never yields invalid UTF-8.
func hardCut(content string, maxChars, overlapChars int) []string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) == 0 || maxChars <= 0 {
		return nil
	}
	if len(runes) <= maxChars {
		return []string{string(runes)}
	}

	var chunks []string
	step := maxChars - overlapChars
	for start := 0; start < len(runes); start += step {
		end := min(start+maxChars, len(runes))
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

type pageOffset struct {
	start int
	page  int
}

func pageOffsets(sections []models.Section) []pageOffset {
	var offsets []pageOffset
	pos := 0
	for _, s := range sections {
		text := strings.TrimSpace(s.Content)
		if text == "" {
			continue
		}
		offsets = append(offsets, pageOffset{start: pos, page: s.PageNumber})
		pos += len(text) + len(sectionSeparator)
	}
	return offsets
}

func pageAt(offsets []pageOffset, pos int) int {
	page := 1
	for _, o := range offsets {
		if pos >= o.start {
			page = o.page
		}
	}
	return page
}
