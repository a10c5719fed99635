package entity

import "github.com/joseph-ayodele/po-digitizer/internal/geom"

// OCRLine is one recognised text line as supplied by an OCR engine.
type OCRLine struct {
	Text       string    `json:"text"`
	Confidence *float64  `json:"confidence,omitempty"`
	BBox       geom.BBox `json:"bbox"`
}

// OCRPage holds the lines of one page in emission order. Width and Height
// are pixel dimensions; zero means unknown.
type OCRPage struct {
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Lines  []OCRLine `json:"lines"`
}

// OCRInput is the raw engine output for a whole document.
type OCRInput struct {
	Filename  string    `json:"filename"`
	Engine    string    `json:"engine,omitempty"`
	Languages []string  `json:"languages,omitempty"`
	Pages     []OCRPage `json:"pages"`
}
