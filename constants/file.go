package constants

import "strings"

// SourceFormat describes how a document reaches the structuring pipeline.
type SourceFormat string

const (
	FormatOCRJSON SourceFormat = "OCR_JSON" // pre-recognised lines
	FormatPDF     SourceFormat = "PDF"
	FormatImage   SourceFormat = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted by the CLI and the HTTP surface.
var AllowedExtensions = map[string]SourceFormat{
	"json": FormatOCRJSON,
	"pdf":  FormatPDF,
	"jpg":  FormatImage,
	"jpeg": FormatImage,
	"png":  FormatImage,
	"tif":  FormatImage,
	"tiff": FormatImage,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the source format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) SourceFormat {
	return AllowedExtensions[NormalizeExt(ext)]
}
