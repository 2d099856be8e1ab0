package ippserver

import (
	"fmt"

	"github.com/google/uuid"
)

// PrinterInfo describes the printer identity and capabilities the default
// service advertises. It is immutable once built: construct it through
// NewPrinterInfoBuilder.
type PrinterInfo struct {
	Name                      string
	Info                      string
	Location                  string
	MoreInfoURI               string
	UUID                      uuid.UUID
	MakeAndModel              string
	SupportedFormats          []string
	DocumentFormatDefault     string
	DeviceURI                 string
	URIAuthenticationSupported string
	URISecuritySupported       string
}

// URN renders the printer UUID in the urn:uuid: wire form IPP requires.
func (p PrinterInfo) URN() string {
	return "urn:uuid:" + p.UUID.String()
}

// SupportsFormat reports whether format is in the printer's advertised
// document-format-supported list.
func (p PrinterInfo) SupportsFormat(format string) bool {
	for _, f := range p.SupportedFormats {
		if f == format {
			return true
		}
	}
	return false
}

// PrinterInfoBuilder enforces PrinterInfo's required fields and its
// document_format_default ∈ supported_formats invariant before producing
// an immutable PrinterInfo.
type PrinterInfoBuilder struct {
	info PrinterInfo
	err  error
}

// NewPrinterInfoBuilder starts building a PrinterInfo with name and
// uri-authentication/security defaults of "none".
func NewPrinterInfoBuilder(name string) *PrinterInfoBuilder {
	return &PrinterInfoBuilder{
		info: PrinterInfo{
			Name:                       name,
			URIAuthenticationSupported: "none",
			URISecuritySupported:       "none",
		},
	}
}

func (b *PrinterInfoBuilder) Info(s string) *PrinterInfoBuilder         { b.info.Info = s; return b }
func (b *PrinterInfoBuilder) Location(s string) *PrinterInfoBuilder     { b.info.Location = s; return b }
func (b *PrinterInfoBuilder) MoreInfoURI(s string) *PrinterInfoBuilder  { b.info.MoreInfoURI = s; return b }
func (b *PrinterInfoBuilder) MakeAndModel(s string) *PrinterInfoBuilder { b.info.MakeAndModel = s; return b }
func (b *PrinterInfoBuilder) DeviceURI(s string) *PrinterInfoBuilder    { b.info.DeviceURI = s; return b }

// UUID sets an explicit printer UUID. When not called, Build generates a
// random (v4) UUID.
func (b *PrinterInfoBuilder) UUID(id uuid.UUID) *PrinterInfoBuilder {
	b.info.UUID = id
	return b
}

// SupportedFormats sets the set of MIME types the printer accepts.
func (b *PrinterInfoBuilder) SupportedFormats(formats ...string) *PrinterInfoBuilder {
	b.info.SupportedFormats = formats
	return b
}

// DocumentFormatDefault sets the format assumed when a Print-Job omits
// document-format.
func (b *PrinterInfoBuilder) DocumentFormatDefault(format string) *PrinterInfoBuilder {
	b.info.DocumentFormatDefault = format
	return b
}

// Build validates and returns the finished PrinterInfo.
func (b *PrinterInfoBuilder) Build() (PrinterInfo, error) {
	if b.err != nil {
		return PrinterInfo{}, b.err
	}
	if b.info.Name == "" {
		return PrinterInfo{}, fmt.Errorf("ippserver: printer name is required")
	}
	if len(b.info.SupportedFormats) == 0 {
		return PrinterInfo{}, fmt.Errorf("ippserver: at least one supported format is required")
	}
	if b.info.DocumentFormatDefault == "" {
		b.info.DocumentFormatDefault = b.info.SupportedFormats[0]
	}
	if !b.info.SupportsFormat(b.info.DocumentFormatDefault) {
		return PrinterInfo{}, fmt.Errorf(
			"ippserver: document_format_default %q is not in supported_formats",
			b.info.DocumentFormatDefault)
	}
	if b.info.UUID == uuid.Nil {
		b.info.UUID = uuid.New()
	}

	return b.info, nil
}
