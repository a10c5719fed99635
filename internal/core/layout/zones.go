package layout

import (
	"fmt"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
)

const (
	DefaultHeaderRatio = 0.20
	DefaultFooterRatio = 0.15
)

type ZoneConfig struct {
	HeaderRatio float64
	FooterRatio float64
}

func (c ZoneConfig) withDefaults() ZoneConfig {
	if c.HeaderRatio <= 0 {
		c.HeaderRatio = DefaultHeaderRatio
	}
	if c.FooterRatio <= 0 {
		c.FooterRatio = DefaultFooterRatio
	}
	return c
}

// SegmentZones splits every page into header, body and footer bands that
// span the full page width. Bands with non-positive height are omitted, so
// pages of unknown height produce no zones.
func SegmentZones(pages []*entity.Page, cfg ZoneConfig) []*entity.Zone {
	cfg = cfg.withDefaults()
	var zones []*entity.Zone
	for _, p := range pages {
		h := p.Height
		if h <= 0 {
			continue
		}
		header := min(h*cfg.HeaderRatio, h)
		footer := min(h*cfg.FooterRatio, h-header)
		bands := []struct {
			kind   constants.ZoneKind
			y1, y2 float64
		}{
			{constants.ZoneHeader, 0, header},
			{constants.ZoneBody, header, h - footer},
			{constants.ZoneFooter, h - footer, h},
		}
		n := 0
		for _, b := range bands {
			if b.y2-b.y1 <= 0 {
				continue
			}
			n++
			box := geom.NewBBox(0, b.y1, p.Width, b.y2)
			zones = append(zones, &entity.Zone{
				ID:      fmt.Sprintf("p%d-z%d", p.Number, n),
				Kind:    b.kind,
				Page:    p.Number,
				BBox:    box,
				BBoxRel: box.Relative(p.Width, p.Height),
			})
		}
	}
	return zones
}
