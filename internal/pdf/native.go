package pdf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tablewise/pdf-tables/internal/domain"
)

const (
	// rowTolerance groups characters into baselines: chars whose Y
	// differs by less than this many points share a line.
	rowTolerance = 2.0

	// wordGapFactor is the fraction of the font size beyond which a
	// horizontal gap between characters starts a new word.
	wordGapFactor = 0.3

	// fallbackFontSize stands in when the text layer reports no size.
	fallbackFontSize = 10.0
)

// NativeTokens extracts word tokens from the text layer of page i
// (0-based). Character runs are grouped into words, and each bounding
// box is flipped to top-left origin and multiplied by scale so token
// coordinates align with the rendered raster's pixel space.
func (d *Document) NativeTokens(i int, scale float64) (tokens []domain.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			tokens = nil
			err = domain.ValidationError(fmt.Sprintf("panic reading text layer of page %d: %v", i+1, r), nil)
		}
	}()

	page := d.rd.Page(i + 1)
	if page.V.IsNull() {
		return nil, domain.ValidationError(fmt.Sprintf("invalid page %d", i+1), nil)
	}

	_, pageHeight := d.pageSize(i)
	chars := page.Content().Text
	return groupWords(chars, pageHeight, scale), nil
}

// groupWords merges positioned characters into word tokens. The text
// layer reports baseline positions with a bottom-left page origin;
// output boxes are top-left origin in raster pixels.
func groupWords(chars []pdf.Text, pageHeight, scale float64) []domain.Token {
	if len(chars) == 0 {
		return nil
	}

	var tokens []domain.Token
	for _, row := range groupIntoRows(chars) {
		sort.SliceStable(row, func(a, b int) bool { return row[a].X < row[b].X })

		var word []pdf.Text
		flush := func() {
			if tok, ok := wordToken(word, pageHeight, scale); ok {
				tokens = append(tokens, tok)
			}
			word = word[:0]
		}

		for _, c := range row {
			if strings.TrimSpace(c.S) == "" {
				flush()
				continue
			}
			if len(word) > 0 {
				last := word[len(word)-1]
				gap := c.X - (last.X + last.W)
				if gap > wordGapFactor*fontSize(last) {
					flush()
				}
			}
			word = append(word, c)
		}
		flush()
	}

	return tokens
}

// groupIntoRows buckets characters by baseline Y, top of page first.
func groupIntoRows(chars []pdf.Text) [][]pdf.Text {
	type bucket struct {
		y     float64
		chars []pdf.Text
	}

	var buckets []bucket
	for _, c := range chars {
		found := false
		for i := range buckets {
			if c.Y >= buckets[i].y-rowTolerance && c.Y <= buckets[i].y+rowTolerance {
				buckets[i].chars = append(buckets[i].chars, c)
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, bucket{y: c.Y, chars: []pdf.Text{c}})
		}
	}

	// Higher Y first: PDF origin is bottom-left.
	sort.SliceStable(buckets, func(a, b int) bool { return buckets[a].y > buckets[b].y })

	rows := make([][]pdf.Text, len(buckets))
	for i, b := range buckets {
		rows[i] = b.chars
	}
	return rows
}

// wordToken builds a token from a run of characters. The vertical
// extent is approximated from the font size around the baseline, which
// the detection model only consumes as relative geometry.
func wordToken(word []pdf.Text, pageHeight, scale float64) (domain.Token, bool) {
	if len(word) == 0 {
		return domain.Token{}, false
	}

	var sb strings.Builder
	fs := 0.0
	for _, c := range word {
		sb.WriteString(c.S)
		if s := fontSize(c); s > fs {
			fs = s
		}
	}

	first, last := word[0], word[len(word)-1]
	x0 := first.X
	x1 := last.X + last.W
	if x1 <= x0 {
		x1 = x0 + fs // degenerate widths still need a valid box
	}

	// Ascent/descent split around the baseline, flipped to top-left.
	y0 := pageHeight - first.Y - 0.8*fs
	y1 := pageHeight - first.Y + 0.2*fs

	bbox := domain.BBox{
		clampNonNegative(x0 * scale),
		clampNonNegative(y0 * scale),
		x1 * scale,
		y1 * scale,
	}
	if !bbox.Valid() {
		return domain.Token{}, false
	}

	return domain.Token{Text: sb.String(), BBox: bbox}, true
}

func fontSize(c pdf.Text) float64 {
	if c.FontSize > 0 {
		return c.FontSize
	}
	return fallbackFontSize
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
