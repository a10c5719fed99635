package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
)

func TestValidateOCRInput(t *testing.T) {
	ok := 0.8
	in := entity.OCRInput{Pages: []entity.OCRPage{{
		Width: 1000, Height: 1400,
		Lines: []entity.OCRLine{{Text: "PO", Confidence: &ok, BBox: geom.NewBBox(0, 0, 10, 10)}},
	}}}
	require.NoError(t, ValidateOCRInput(in))
	require.NoError(t, ValidateOCRInput(entity.OCRInput{}))

	bad := 1.5
	in.Pages[0].Height = -1
	in.Pages[0].Lines = append(in.Pages[0].Lines, entity.OCRLine{
		Text:       "x",
		Confidence: &bad,
		BBox:       geom.BBox{X1: math.NaN()},
	})
	err := ValidateOCRInput(in)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, CodeOf(err))
	msg := Message(err)
	assert.Contains(t, msg, "pages[0].height")
	assert.Contains(t, msg, "pages[0].lines[1].confidence")
	assert.Contains(t, msg, "pages[0].lines[1].bbox[0]")
	assert.NotContains(t, msg, "lines[0]")
}

func TestRules(t *testing.T) {
	assert.NotNil(t, Required("name", "  "))
	assert.Nil(t, Required("name", "po.json"))
	assert.NotNil(t, UUID("id", "nope"))
	assert.Nil(t, UUID("id", "6f1c1f5e-8a5e-4c1b-9d51-0a6f6f4f2b10"))
	assert.Nil(t, SupportedExtension("file", "scan.TIFF"))
	assert.NotNil(t, SupportedExtension("file", "notes.docx"))
	assert.NotNil(t, SupportedExtension("file", "README"))

	v := NewValidator().Field("file", "", Required, SupportedExtension)
	assert.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
}
