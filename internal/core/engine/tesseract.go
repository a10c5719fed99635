package engine

import (
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// TesseractFactory builds gosseract-backed handles.
type TesseractFactory struct {
	TessdataPrefix string
	DPI            int
}

func (f TesseractFactory) newClient() *gosseract.Client {
	c := gosseract.NewClient()
	if f.TessdataPrefix != "" {
		c.SetTessdataPrefix(f.TessdataPrefix)
	}
	return c
}

func (f TesseractFactory) NewDetector() (Detector, error) {
	c := f.newClient()
	if err := f.setDPI(c); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &tessDetector{client: c}, nil
}

func (f TesseractFactory) NewRecognizer(langs []string) (Recognizer, error) {
	c := f.newClient()
	if err := c.SetLanguage(langs...); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set page seg mode: %w", err)
	}
	// column gaps must survive recognition for table detection
	if err := c.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set preserve_interword_spaces: %w", err)
	}
	if err := f.setDPI(c); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &tessRecognizer{client: c}, nil
}

func (f TesseractFactory) setDPI(c *gosseract.Client) error {
	if f.DPI <= 0 {
		return nil
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(f.DPI)); err != nil {
		return fmt.Errorf("set dpi: %w", err)
	}
	return nil
}

// gosseract clients are not safe for concurrent use.
type tessDetector struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func (d *tessDetector) DetectLines(img []byte) ([]image.Rectangle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := d.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("detect lines: %w", err)
	}
	out := make([]image.Rectangle, 0, len(boxes))
	for _, b := range boxes {
		if b.Box.Empty() {
			continue
		}
		out = append(out, b.Box)
	}
	return out, nil
}

func (d *tessDetector) Close() error { return d.client.Close() }

type tessRecognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func (r *tessRecognizer) Recognize(img []byte) (string, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.client.SetImageFromBytes(img); err != nil {
		return "", 0, fmt.Errorf("set image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("recognize text: %w", err)
	}
	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return text, 0, nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return text, sum / float64(len(boxes)), nil
}

func (r *tessRecognizer) Close() error { return r.client.Close() }
