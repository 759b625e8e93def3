// Package pdftext extracts per-page text from bulletin PDFs, preserving
// line structure so the downstream classifier sees the same rows a human
// reads. Extraction only; no interpretation of the content happens here.
package pdftext

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Pages returns the text of each page, one string per page, rows joined
// with newlines. Pages that fail text extraction are returned empty
// rather than aborting the document; scanned image pages are common in
// older bulletins.
func Pages(doc []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return readPages(r)
}

// PagesFromFile is the file-path variant of Pages.
func PagesFromFile(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return readPages(r)
}

func readPages(r *pdf.Reader) ([]string, error) {
	total := r.NumPage()
	pages := make([]string, 0, total)
	for n := 1; n <= total; n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageText(p))
	}
	return pages, nil
}

// lineTolerance is the vertical band, in points, within which text
// fragments count as the same visual row. Bulletin line spacing is well
// above 10pt, so a narrow band never merges adjacent lines.
const lineTolerance = 2.0

// pageText reassembles a page row by row. The raw content stream yields
// fragments in stream order, one per show operation, which does not match
// reading order; fragments are banded by baseline Y and then ordered by X
// within each band so zone headers and pharmacy lines stay on separate
// rows.
func pageText(p pdf.Page) string {
	texts := p.Content().Text
	if len(texts) == 0 {
		// Degrade to the unstructured form rather than dropping the page.
		text, err := p.GetPlainText(nil)
		if err != nil {
			return ""
		}
		return text
	}

	sort.SliceStable(texts, func(i, j int) bool { return texts[i].Y > texts[j].Y })

	var rows [][]pdf.Text
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		// Anchor each band on its first fragment so accumulated drift
		// cannot merge rows.
		if n := len(rows); n > 0 && rows[n-1][0].Y-t.Y <= lineTolerance {
			rows[n-1] = append(rows[n-1], t)
			continue
		}
		rows = append(rows, []pdf.Text{t})
	}

	var b strings.Builder
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		line := strings.TrimSpace(rowText(row))
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// rowText joins the fragments of one visual row. A horizontal gap wider
// than a fraction of the font size separates words; smaller gaps are
// kerning splits inside a word and concatenate directly.
func rowText(row []pdf.Text) string {
	var b strings.Builder
	for i, t := range row {
		if i > 0 {
			prev := row[i-1]
			if t.X-(prev.X+prev.W) > wordGap(prev.FontSize) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
	return b.String()
}

func wordGap(fontSize float64) float64 {
	if fontSize <= 0 {
		return 1
	}
	return fontSize * 0.3
}
