package models

import "fmt"

// OutputFormat is the encoding of a transformed image
type OutputFormat string

const (
	FormatJPEG OutputFormat = "jpeg"
	FormatPNG  OutputFormat = "png"
	FormatWEBP OutputFormat = "webp"
)

var formatMIMETypes = map[OutputFormat]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatWEBP: "image/webp",
}

// ParseFormat validates a format path segment
func ParseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(s)
	if _, ok := formatMIMETypes[f]; !ok {
		return "", fmt.Errorf("unknown format %q", s)
	}
	return f, nil
}

// MIMEType returns the canonical MIME type of the format
func (f OutputFormat) MIMEType() string {
	return formatMIMETypes[f]
}

func (f OutputFormat) String() string {
	return string(f)
}

// Formats lists every known output format
func Formats() []OutputFormat {
	return []OutputFormat{FormatJPEG, FormatPNG, FormatWEBP}
}
