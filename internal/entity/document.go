package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
)

// Hint is the classification a token receives from the hinter.
type Hint struct {
	Kind     constants.HintKind `json:"type"`
	Glyph    string             `json:"glyph,omitempty"`
	Word     string             `json:"currency_word,omitempty"`
	Order    string             `json:"order,omitempty"`
	Grouping string             `json:"grouping,omitempty"`
}

// Token is a line or a word with geometry and a document-wide reading order.
type Token struct {
	ID           string              `json:"id"`
	Text         string              `json:"text"`
	Confidence   *float64            `json:"confidence,omitempty"`
	BBox         geom.BBox           `json:"bbox"`
	BBoxRel      geom.BBox           `json:"bbox_rel"`
	Page         int                 `json:"page"`
	ReadingOrder int                 `json:"reading_order"`
	Kind         constants.TokenKind `json:"token_type"`
	Engine       string              `json:"engine"`
	BlockID      string              `json:"block_id"`
	OrderInBlock int                 `json:"order_in_block"`
	Hints        *Hint               `json:"hints,omitempty"`
}

// Block is one OCR line together with the tokens it owns (line token first).
type Block struct {
	ID           string    `json:"block_id"`
	Text         string    `json:"text"`
	Confidence   *float64  `json:"confidence,omitempty"`
	BBox         geom.BBox `json:"bbox"`
	BBoxRel      geom.BBox `json:"bbox_rel"`
	Page         int       `json:"page"`
	ReadingOrder int       `json:"reading_order"`
	TokenIDs     []string  `json:"token_ids"`
}

type Page struct {
	Number int      `json:"page_number"`
	Text   string   `json:"text"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Blocks []*Block `json:"blocks"`
	// TableIDs is appended once by the table detector.
	TableIDs []string `json:"table_ids,omitempty"`
}

type Zone struct {
	ID      string             `json:"zone_id"`
	Kind    constants.ZoneKind `json:"zone_type"`
	Page    int                `json:"page"`
	BBox    geom.BBox          `json:"bbox"`
	BBoxRel geom.BBox          `json:"bbox_rel"`
}

// Anchor is a block recognised as a field label.
type Anchor struct {
	ID    string `json:"anchor_id"`
	Label string `json:"label"`
	Text  string `json:"text"`
	// Match is the part of Text that triggered the label pattern.
	Match           string              `json:"match"`
	Page            int                 `json:"page"`
	BBox            geom.BBox           `json:"bbox"`
	BBoxRel         geom.BBox           `json:"bbox_rel"`
	Zone            *constants.ZoneKind `json:"zone_type"`
	TokenIDs        []string            `json:"token_ids"`
	ContextTokenIDs []string            `json:"context_token_ids"`
	ContextWindowPx int                 `json:"context_window_px"`
}

type TableCell struct {
	ID       string         `json:"cell_id"`
	Row      int            `json:"row"`
	Col      int            `json:"column"`
	Text     string         `json:"text"`
	BBox     geom.BBox      `json:"bbox"`
	BBoxRel  geom.BBox      `json:"bbox_rel"`
	RowSpan  int            `json:"row_span"`
	ColSpan  int            `json:"column_span"`
	IsHeader bool           `json:"is_header"`
	TokenIDs []string       `json:"token_ids"`
	Hints    map[string]any `json:"hints"`
}

// Table is a reconstructed table skeleton. Cells are stored row-major.
type Table struct {
	ID            string       `json:"table_id"`
	Page          int          `json:"page"`
	BBox          geom.BBox    `json:"bbox"`
	BBoxRel       geom.BBox    `json:"bbox_rel"`
	HeaderRows    []int        `json:"header_rows"`
	ColumnHeaders []string     `json:"column_headers"`
	NRows         int          `json:"n_rows"`
	NCols         int          `json:"n_cols"`
	Cells         []*TableCell `json:"cells"`
}

// Cell returns the cell at (row, col) or nil.
func (t *Table) Cell(row, col int) *TableCell {
	if row < 0 || col < 0 || row >= t.NRows || col >= t.NCols {
		return nil
	}
	i := row*t.NCols + col
	if i >= len(t.Cells) {
		return nil
	}
	return t.Cells[i]
}

// Row returns the cell texts of one row.
func (t *Table) Row(row int) []string {
	out := make([]string, 0, t.NCols)
	for col := 0; col < t.NCols; col++ {
		if c := t.Cell(row, col); c != nil {
			out = append(out, c.Text)
		}
	}
	return out
}

type Evidence struct {
	Page        int       `json:"page"`
	BBox        geom.BBox `json:"bbox"`
	BBoxRel     geom.BBox `json:"bbox_rel"`
	AnchorID    string    `json:"anchor_id,omitempty"`
	AnchorLabel string    `json:"anchor_label,omitempty"`
	TokenIDs    []string  `json:"token_ids"`
}

// FieldCandidate is a proposed raw value for a field with its provenance.
type FieldCandidate struct {
	Value    string   `json:"value_raw"`
	Evidence Evidence `json:"evidence"`
}

type NormalizedValue struct {
	Raw        *string        `json:"raw"`
	Normalized *string        `json:"normalized"`
	ValueType  string         `json:"value_type"`
	Parser     string         `json:"parser"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
}

type TotalsBreakdown struct {
	Subtotal        *NormalizedValue       `json:"subtotal"`
	TaxTotal        *NormalizedValue       `json:"tax_total"`
	GrandTotal      *NormalizedValue       `json:"grand_total"`
	RecomputedTotal *NormalizedValue       `json:"recomputed_total"`
	Difference      *float64               `json:"difference"`
	Status          constants.TotalsStatus `json:"status"`
	Notes           string                 `json:"notes,omitempty"`
}

type Normalization struct {
	Fields   map[string]*NormalizedValue `json:"fields"`
	Currency *NormalizedValue            `json:"currency"`
	Totals   *TotalsBreakdown            `json:"totals"`
}

// DocumentHints are document-level statistics derived from token hints.
type DocumentHints struct {
	DayFirstProb   *float64 `json:"day_first_prob"`
	NumberingStyle *string  `json:"numbering_style"`
	CurrencyGlyphs []string `json:"currency_glyphs"`
}

type Fingerprint struct {
	VendorGuess *string `json:"vendor_guess"`
	// VendorRaw keeps the extracted name when master data renamed the guess.
	VendorRaw       *string  `json:"vendor_raw,omitempty"`
	LayoutSignature string   `json:"layout_signature"`
	Languages       []string `json:"languages"`
	CurrencyGlyphs  []string `json:"currency_glyphs"`
	NumberingStyle  *string  `json:"numbering_style"`
}

// MasterData carries the alias tables loaded for the run (canonical → aliases).
type MasterData struct {
	VendorAliases map[string][]string `json:"vendor_aliases"`
	SKUAliases    map[string][]string `json:"sku_aliases"`
	UOMAliases    map[string][]string `json:"uom_aliases"`
}

type Anomaly struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Page    *int   `json:"page,omitempty"`
}

// Metrics records per-stage timings and structural counts for one run.
type Metrics struct {
	StageMillis map[string]float64 `json:"stage_ms"`
	Tokens      int                `json:"tokens"`
	Anchors     int                `json:"anchors"`
	Tables      int                `json:"tables"`
	Candidates  int                `json:"candidates"`
}

// Document is the structured result of one run. Slices own the entities;
// cross references are ids resolved through the lookup methods.
type Document struct {
	RunID       uuid.UUID                    `json:"run_id"`
	CreatedAt   time.Time                    `json:"created_at"`
	Filename    string                       `json:"filename"`
	Pages       []*Page                      `json:"pages"`
	FullText    string                       `json:"full_text"`
	Tokens      []*Token                     `json:"tokens"`
	Zones       []*Zone                      `json:"zones"`
	Anchors     []*Anchor                    `json:"anchors"`
	Tables      []*Table                     `json:"tables"`
	Candidates  map[string][]*FieldCandidate `json:"candidates"`
	Hints       *DocumentHints               `json:"hints"`
	Normalized  *Normalization               `json:"normalized"`
	Fingerprint *Fingerprint                 `json:"fingerprint"`
	MasterData  *MasterData                  `json:"master_data,omitempty"`
	Anomalies   []*Anomaly                   `json:"anomalies"`
	Metrics     *Metrics                     `json:"metrics,omitempty"`

	tokenIdx map[string]*Token
	tableIdx map[string]*Table
}

// AddToken appends t and indexes it by id.
func (d *Document) AddToken(t *Token) {
	d.Tokens = append(d.Tokens, t)
	if d.tokenIdx == nil {
		d.tokenIdx = make(map[string]*Token)
	}
	d.tokenIdx[t.ID] = t
}

// AddTable appends t to the document and records it on its page.
func (d *Document) AddTable(t *Table) {
	d.Tables = append(d.Tables, t)
	if d.tableIdx == nil {
		d.tableIdx = make(map[string]*Table)
	}
	d.tableIdx[t.ID] = t
	if p := d.Page(t.Page); p != nil {
		p.TableIDs = append(p.TableIDs, t.ID)
	}
}

// TokenByID resolves a token id. Decoded documents are indexed on first use.
func (d *Document) TokenByID(id string) *Token {
	if len(d.tokenIdx) != len(d.Tokens) {
		d.tokenIdx = make(map[string]*Token, len(d.Tokens))
		for _, t := range d.Tokens {
			d.tokenIdx[t.ID] = t
		}
	}
	return d.tokenIdx[id]
}

func (d *Document) TableByID(id string) *Table {
	if len(d.tableIdx) != len(d.Tables) {
		d.tableIdx = make(map[string]*Table, len(d.Tables))
		for _, t := range d.Tables {
			d.tableIdx[t.ID] = t
		}
	}
	return d.tableIdx[id]
}

// Page returns the 1-indexed page n or nil.
func (d *Document) Page(n int) *Page {
	if n < 1 || n > len(d.Pages) {
		return nil
	}
	return d.Pages[n-1]
}

// BlockTokens resolves the tokens owned by b, in block order.
func (d *Document) BlockTokens(b *Block) []*Token {
	out := make([]*Token, 0, len(b.TokenIDs))
	for _, id := range b.TokenIDs {
		if t := d.TokenByID(id); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// PageTokens returns the tokens of page n in reading order.
func (d *Document) PageTokens(n int) []*Token {
	var out []*Token
	for _, t := range d.Tokens {
		if t.Page == n {
			out = append(out, t)
		}
	}
	return out
}

// EnsureCollections replaces nil top-level collections with empty ones so
// the encoded result always carries arrays.
func (d *Document) EnsureCollections() {
	if d.Pages == nil {
		d.Pages = []*Page{}
	}
	for _, p := range d.Pages {
		if p.Blocks == nil {
			p.Blocks = []*Block{}
		}
	}
	if d.Tokens == nil {
		d.Tokens = []*Token{}
	}
	if d.Zones == nil {
		d.Zones = []*Zone{}
	}
	if d.Anchors == nil {
		d.Anchors = []*Anchor{}
	}
	if d.Tables == nil {
		d.Tables = []*Table{}
	}
	if d.Candidates == nil {
		d.Candidates = map[string][]*FieldCandidate{}
	}
	if d.Anomalies == nil {
		d.Anomalies = []*Anomaly{}
	}
}
