package normalize

import (
	"regexp"
	"strings"
	"time"
)

// DateFamily is an ordered list of layouts tried together.
type DateFamily struct {
	Name    string
	Layouts []string
}

var (
	DayFirstDates = DateFamily{Name: "day_first", Layouts: []string{
		"2/1/2006", "2-1-2006", "2.1.2006", "2 Jan 2006", "2 January 2006", "2/1/06", "2-1-06",
	}}
	MonthFirstDates = DateFamily{Name: "month_first", Layouts: []string{
		"1/2/2006", "1-2-2006", "1/2/06", "1-2-06", "Jan 2 2006", "January 2 2006",
	}}
	ISODates = DateFamily{Name: "iso", Layouts: []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
	}}
)

// DateFamilies returns the families in trial order for a day-first
// probability: month-first leads only when the probability is below 0.5.
// ISO layouts always come last.
func DateFamilies(dayFirstProb *float64) []DateFamily {
	if dayFirstProb != nil && *dayFirstProb < 0.5 {
		return []DateFamily{MonthFirstDates, DayFirstDates, ISODates}
	}
	return []DateFamily{DayFirstDates, MonthFirstDates, ISODates}
}

var (
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reDateSep    = regexp.MustCompile(`[.\-]`)
)

// DateResult is the outcome of ParseDate. ISO is nil when nothing parsed.
type DateResult struct {
	ISO        *string
	Confidence float64
	Metadata   map[string]any
}

// ParseDate converts raw to an ISO date. Failures keep the raw value and
// report a low confidence instead of an error.
func ParseDate(raw string, dayFirstProb *float64) DateResult {
	res := DateResult{Confidence: 0.4, Metadata: map[string]any{}}
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return res
	}
	cleaned = strings.TrimSpace(reMultiSpace.ReplaceAllString(strings.ReplaceAll(cleaned, ",", " "), " "))
	if dayFirstProb != nil {
		res.Metadata["day_first_prob"] = *dayFirstProb
	}

	families := DateFamilies(dayFirstProb)
	for _, fam := range families {
		for _, layout := range fam.Layouts {
			t, err := time.Parse(layout, cleaned)
			if err != nil {
				continue
			}
			iso := t.Format(time.DateOnly)
			res.ISO = &iso
			res.Confidence = 0.9
			if dayFirstProb != nil {
				res.Confidence = max(*dayFirstProb, 1-*dayFirstProb)
			}
			res.Metadata["format"] = layout
			res.Metadata["family"] = fam.Name
			return res
		}
	}

	relaxed := reDateSep.ReplaceAllString(cleaned, "/")
	if relaxed == cleaned {
		return res
	}
	for _, fam := range families {
		for _, layout := range fam.Layouts {
			t, err := time.Parse(reDateSep.ReplaceAllString(layout, "/"), relaxed)
			if err != nil {
				continue
			}
			iso := t.Format(time.DateOnly)
			res.ISO = &iso
			res.Confidence = 0.8
			res.Metadata["format"] = layout
			res.Metadata["family"] = fam.Name
			res.Metadata["relaxed"] = true
			return res
		}
	}
	return res
}
