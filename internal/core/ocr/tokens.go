package ocr

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// BuildDocument converts raw engine lines into pages, blocks and tokens.
// A single counter assigns reading order across the document: each line
// token, then its words, then the next line. Pages without lines still
// produce an empty page.
func BuildDocument(in entity.OCRInput) *entity.Document {
	engine := in.Engine
	if engine == "" {
		engine = constants.DefaultEngine
	}
	doc := &entity.Document{
		Filename:   in.Filename,
		Candidates: map[string][]*entity.FieldCandidate{},
	}

	order := 0
	pageTexts := make([]string, 0, len(in.Pages))
	for pi, src := range in.Pages {
		pageNo := pi + 1
		page := &entity.Page{Number: pageNo, Width: src.Width, Height: src.Height}

		lineTexts := make([]string, 0, len(src.Lines))
		for li, line := range src.Lines {
			text := CleanLine(line.Text)
			rel := line.BBox.Relative(src.Width, src.Height)
			blockID := fmt.Sprintf("p%d-l%d", pageNo, li+1)

			lineTok := &entity.Token{
				ID:           blockID,
				Text:         text,
				Confidence:   line.Confidence,
				BBox:         line.BBox,
				BBoxRel:      rel,
				Page:         pageNo,
				ReadingOrder: order,
				Kind:         constants.TokenLine,
				Engine:       engine,
				BlockID:      blockID,
			}
			order++
			doc.AddToken(lineTok)

			block := &entity.Block{
				ID:           blockID,
				Text:         text,
				Confidence:   line.Confidence,
				BBox:         line.BBox,
				BBoxRel:      rel,
				Page:         pageNo,
				ReadingOrder: lineTok.ReadingOrder,
				TokenIDs:     []string{lineTok.ID},
			}

			for wi, word := range strings.Fields(text) {
				w := &entity.Token{
					ID:           fmt.Sprintf("%s-w%d", blockID, wi+1),
					Text:         word,
					Confidence:   line.Confidence,
					BBox:         line.BBox,
					BBoxRel:      rel,
					Page:         pageNo,
					ReadingOrder: order,
					Kind:         constants.TokenWord,
					Engine:       engine,
					BlockID:      blockID,
					OrderInBlock: wi + 1,
				}
				order++
				doc.AddToken(w)
				block.TokenIDs = append(block.TokenIDs, w.ID)
			}

			page.Blocks = append(page.Blocks, block)
			if text != "" {
				lineTexts = append(lineTexts, text)
			}
		}

		page.Text = strings.Join(lineTexts, "\n")
		if page.Text != "" {
			pageTexts = append(pageTexts, page.Text)
		}
		doc.Pages = append(doc.Pages, page)
	}
	doc.FullText = strings.Join(pageTexts, "\n\n")
	return doc
}
