package constants

// ZoneKind is a vertical band of a page.
type ZoneKind string

const (
	ZoneHeader ZoneKind = "header"
	ZoneBody   ZoneKind = "body"
	ZoneFooter ZoneKind = "footer"
)

// TokenKind distinguishes whole-line tokens from the words split out of them.
type TokenKind string

const (
	TokenLine TokenKind = "line"
	TokenWord TokenKind = "word"
)

// HintKind is the classification tag attached to a token by the hinter.
type HintKind string

const (
	HintMoney  HintKind = "money"
	HintDate   HintKind = "date"
	HintNumber HintKind = "number"
)

// Date component orders observed by the hinter.
const (
	OrderDayFirst   = "day_first"
	OrderMonthFirst = "month_first"
	OrderAmbiguous  = "ambiguous"
	OrderISO        = "iso"
)

// Numbering styles (thousands grouping conventions).
const (
	NumberingIndian        = "indian"
	NumberingInternational = "international"
	NumberingUnknown       = "unknown"
)

// DefaultEngine is recorded on tokens when the line source does not name itself.
const DefaultEngine = "tesseract"
