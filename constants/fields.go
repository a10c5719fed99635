package constants

// Anchor labels, in detection priority order.
const (
	LabelPONumber       = "po_number"
	LabelPODate         = "po_date"
	LabelOrderReference = "order_reference"
	LabelBillTo         = "bill_to"
	LabelShipTo         = "ship_to"
	LabelVendor         = "vendor"
	LabelInvoiceNumber  = "invoice_number"
	LabelInvoiceDate    = "invoice_date"
	LabelTotal          = "total"
	LabelSubtotal       = "subtotal"
	LabelTax            = "tax"
)

// Canonical field names produced by candidate extraction and normalization.
const (
	FieldPONumber       = "po_number"
	FieldPODate         = "po_date"
	FieldOrderReference = "order_reference"
	FieldInvoiceNumber  = "invoice_number"
	FieldInvoiceDate    = "invoice_date"
	FieldVendorName     = "vendor_name"
	FieldGrandTotal     = "grand_total"
	FieldSubtotal       = "subtotal"
	FieldTaxTotal       = "tax_total"
	FieldCurrency       = "currency"
)

// LabelFields maps anchor labels to the field they feed. Labels not present
// here (bill_to, ship_to) produce no candidates.
var LabelFields = map[string]string{
	LabelPONumber:       FieldPONumber,
	LabelPODate:         FieldPODate,
	LabelOrderReference: FieldOrderReference,
	LabelInvoiceNumber:  FieldInvoiceNumber,
	LabelInvoiceDate:    FieldInvoiceDate,
	LabelVendor:         FieldVendorName,
	LabelTotal:          FieldGrandTotal,
	LabelSubtotal:       FieldSubtotal,
	LabelTax:            FieldTaxTotal,
}

// IdentityFields are normalized by trimming only.
var IdentityFields = []string{FieldPONumber, FieldOrderReference, FieldInvoiceNumber, FieldVendorName}

// DateFields are normalized to ISO dates.
var DateFields = []string{FieldPODate, FieldInvoiceDate}

// NumericFields are normalized to decimal strings.
var NumericFields = []string{FieldSubtotal, FieldTaxTotal, FieldGrandTotal}

// CurrencyGlyphs are the symbols recognised by the hinter, in lookup order.
var CurrencyGlyphs = []string{"₹", "$", "€", "£"}

// CurrencyGlyphCodes resolves a glyph to its ISO 4217 code.
var CurrencyGlyphCodes = map[string]string{
	"₹": "INR",
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
}

// CurrencyWordCodes resolves a lowercase currency word to its ISO 4217 code.
var CurrencyWordCodes = map[string]string{
	"inr": "INR",
	"rs":  "INR",
	"rs.": "INR",
	"usd": "USD",
	"eur": "EUR",
	"gbp": "GBP",
	"aud": "AUD",
	"cad": "CAD",
}
