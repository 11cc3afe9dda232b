package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrayscale_SingleChannel(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{G: 255, A: 255})
	src.Set(0, 1, color.RGBA{B: 255, A: 255})
	src.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	gray := grayscale(src)

	require.Equal(t, src.Bounds(), gray.Bounds())
	// White stays white; pure channels land on their luma weights.
	assert.Equal(t, uint8(255), gray.GrayAt(1, 1).Y)
	assert.Greater(t, gray.GrayAt(1, 0).Y, gray.GrayAt(0, 0).Y, "green is brighter than red")
	assert.Greater(t, gray.GrayAt(0, 0).Y, gray.GrayAt(0, 1).Y, "red is brighter than blue")
}

func TestEnhanceContrast_StretchesAroundMidGray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 1))
	gray.SetGray(0, 0, color.Gray{Y: 128}) // midpoint is fixed
	gray.SetGray(1, 0, color.Gray{Y: 100}) // darker gets darker
	gray.SetGray(2, 0, color.Gray{Y: 200}) // lighter gets lighter
	gray.SetGray(3, 0, color.Gray{Y: 10})  // clamps at black

	out := enhanceContrast(gray, 2.0)

	assert.Equal(t, uint8(128), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(72), out.GrayAt(1, 0).Y)  // (100-128)*2+128
	assert.Equal(t, uint8(255), out.GrayAt(2, 0).Y) // (200-128)*2+128 clamps
	assert.Equal(t, uint8(0), out.GrayAt(3, 0).Y)
}

func TestPreprocess_PreservesDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 37, 11))
	out := Preprocess(src)
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestBoxToken(t *testing.T) {
	tests := []struct {
		name   string
		box    gosseract.BoundingBox
		wantOK bool
	}{
		{
			name:   "normal word",
			box:    gosseract.BoundingBox{Box: image.Rect(10, 20, 50, 40), Word: "Total", LineNum: 2, BlockNum: 1},
			wantOK: true,
		},
		{
			name:   "empty word discarded",
			box:    gosseract.BoundingBox{Box: image.Rect(10, 20, 50, 40), Word: "   "},
			wantOK: false,
		},
		{
			name:   "degenerate box discarded",
			box:    gosseract.BoundingBox{Box: image.Rect(10, 20, 10, 20), Word: "x"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, ok := boxToken(tt.box)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, "Total", tok.Text)
			assert.Equal(t, [4]float64{10, 20, 50, 40}, [4]float64(tok.BBox))
			assert.Equal(t, 2, tok.LineNum)
			assert.Equal(t, 1, tok.BlockNum)
			assert.True(t, tok.BBox.Valid())
		})
	}
}
