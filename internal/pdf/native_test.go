package pdf

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func char(s string, x, y, w, size float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: size}
}

func TestGroupWords_MergesAdjacentChars(t *testing.T) {
	// "Hi" written as two tightly spaced chars on one baseline.
	chars := []pdf.Text{
		char("H", 10, 700, 6, 12),
		char("i", 16.5, 700, 3, 12),
	}

	tokens := groupWords(chars, 792, 1.0)

	require.Len(t, tokens, 1)
	assert.Equal(t, "Hi", tokens[0].Text)
	assert.InDelta(t, 10.0, tokens[0].BBox[0], 0.01)
	assert.InDelta(t, 19.5, tokens[0].BBox[2], 0.01)
}

func TestGroupWords_SplitsOnGap(t *testing.T) {
	// Gap of 10pt at 12pt font is far past the 0.3x threshold.
	chars := []pdf.Text{
		char("a", 10, 700, 5, 12),
		char("b", 25, 700, 5, 12),
	}

	tokens := groupWords(chars, 792, 1.0)

	require.Len(t, tokens, 2)
	assert.Equal(t, "a", tokens[0].Text)
	assert.Equal(t, "b", tokens[1].Text)
}

func TestGroupWords_SplitsOnWhitespaceChar(t *testing.T) {
	chars := []pdf.Text{
		char("a", 10, 700, 5, 12),
		char(" ", 15, 700, 3, 12),
		char("b", 18, 700, 5, 12),
	}

	tokens := groupWords(chars, 792, 1.0)

	require.Len(t, tokens, 2)
	assert.Equal(t, "a", tokens[0].Text)
	assert.Equal(t, "b", tokens[1].Text)
}

func TestGroupWords_SeparatesBaselines(t *testing.T) {
	chars := []pdf.Text{
		char("x", 10, 700, 5, 12),
		char("y", 10, 650, 5, 12),
	}

	tokens := groupWords(chars, 792, 1.0)

	require.Len(t, tokens, 2)
	// Top of page comes first: higher PDF Y means higher on the page.
	assert.Equal(t, "x", tokens[0].Text)
	assert.Equal(t, "y", tokens[1].Text)
	assert.Less(t, tokens[0].BBox[1], tokens[1].BBox[1])
}

func TestGroupWords_ScalesIntoRasterSpace(t *testing.T) {
	chars := []pdf.Text{char("Q", 100, 692, 8, 10)}

	unscaled := groupWords(chars, 792, 1.0)
	scaled := groupWords(chars, 792, 2.0)

	require.Len(t, unscaled, 1)
	require.Len(t, scaled, 1)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, unscaled[0].BBox[i]*2, scaled[0].BBox[i], 0.01)
	}
}

func TestGroupWords_BoxesAreValid(t *testing.T) {
	chars := []pdf.Text{
		char("edge", 0, 792, 20, 12), // baseline at the very top edge
		char("zero", 50, 100, 20, 0), // missing font size
	}

	tokens := groupWords(chars, 792, 2.0)

	for _, tok := range tokens {
		assert.True(t, tok.BBox.Valid(), "token %q has invalid bbox %v", tok.Text, tok.BBox)
	}
}

func TestGroupWords_Empty(t *testing.T) {
	assert.Nil(t, groupWords(nil, 792, 1.0))
	assert.Empty(t, groupWords([]pdf.Text{char(" ", 1, 1, 1, 10)}, 792, 1.0))
}
