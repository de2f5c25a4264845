package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Certificate holds the data printed on an ownership certificate for a
// credit lot.
type Certificate struct {
	LotID       uint64
	Owner       string
	Amount      uint64
	ProjectID   uint64
	ProjectInfo string
	Expiration  time.Time
	MintedAt    time.Time
	IssuedAt    time.Time
}

// CertificateGenerator renders ownership certificates as PDF documents.
type CertificateGenerator struct {
	options CertificateOptions
}

// CertificateOptions configures certificate rendering.
type CertificateOptions struct {
	Issuer     string
	FontFamily string
	DateFormat string
}

// DefaultCertificateOptions returns the default certificate options.
func DefaultCertificateOptions() CertificateOptions {
	return CertificateOptions{
		Issuer:     "Carbon Credit Ledger",
		FontFamily: "Arial",
		DateFormat: "2006-01-02",
	}
}

// NewCertificateGenerator creates a certificate generator.
func NewCertificateGenerator(options CertificateOptions) *CertificateGenerator {
	if options.FontFamily == "" {
		options.FontFamily = "Arial"
	}
	if options.DateFormat == "" {
		options.DateFormat = "2006-01-02"
	}
	return &CertificateGenerator{options: options}
}

// Generate renders the certificate and writes the PDF to w.
func (g *CertificateGenerator) Generate(w io.Writer, cert Certificate) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont(g.options.FontFamily, "B", 22)
	pdf.SetTextColor(46, 125, 50)
	pdf.CellFormat(0, 12, "Certificate of Carbon Credit Ownership", "", 1, "C", false, 0, "")

	pdf.SetFont(g.options.FontFamily, "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, g.options.Issuer, "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetDrawColor(46, 125, 50)
	pdf.SetLineWidth(0.6)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(10)

	pdf.SetTextColor(0, 0, 0)
	g.field(pdf, "Certificate No.", fmt.Sprintf("LOT-%d", cert.LotID))
	g.field(pdf, "Holder", cert.Owner)
	g.field(pdf, "Credits", fmt.Sprintf("%d tCO2e", cert.Amount))
	g.field(pdf, "Project", fmt.Sprintf("#%d", cert.ProjectID))
	if cert.ProjectInfo != "" {
		g.field(pdf, "Project Description", cert.ProjectInfo)
	}
	g.field(pdf, "Minted", cert.MintedAt.Format(g.options.DateFormat))
	g.field(pdf, "Valid Until", cert.Expiration.Format(g.options.DateFormat))
	g.field(pdf, "Issued", cert.IssuedAt.Format(g.options.DateFormat))

	pdf.Ln(12)
	pdf.SetFont(g.options.FontFamily, "I", 9)
	pdf.SetTextColor(128, 128, 128)
	pdf.MultiCell(0, 5, "This certificate attests that the holder named above owns the "+
		"listed credit lot on the ledger as of the issue date. Ownership may change "+
		"through subsequent transfers; the ledger record is authoritative.", "", "L", false)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.options.FontFamily, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	return pdf.Output(w)
}

func (g *CertificateGenerator) field(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont(g.options.FontFamily, "B", 11)
	pdf.CellFormat(55, 8, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.options.FontFamily, "", 11)
	pdf.MultiCell(0, 8, value, "", "L", false)
}
