package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Brand palette for the certificate artwork.
var (
	brandRed   = [3]int{196, 30, 58}
	goldAccent = [3]int{218, 165, 32}
)

// CertificateData carries everything the renderer needs for one certificate.
type CertificateData struct {
	StudentName    string
	RegistrationNo string
	Course         string
	Branch         string
	AdmissionYear  string
	PassingYear    string
	TransactionID  string
	IssuedAt       time.Time
}

// CertificateRenderer produces the landscape no-dues certificate PDF.
type CertificateRenderer struct {
	institution string
	motto       string
}

// NewCertificateRenderer constructs a renderer with institution branding.
func NewCertificateRenderer(institution, motto string) *CertificateRenderer {
	if institution == "" {
		institution = "University"
	}
	return &CertificateRenderer{institution: institution, motto: motto}
}

// Render draws the certificate and returns the PDF bytes.
func (r *CertificateRenderer) Render(data CertificateData) ([]byte, error) {
	if strings.TrimSpace(data.StudentName) == "" || strings.TrimSpace(data.RegistrationNo) == "" {
		return nil, fmt.Errorf("certificate requires student name and registration number")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pageWidth, pageHeight := pdf.GetPageSize()

	// Ornamental triple border.
	pdf.SetDrawColor(goldAccent[0], goldAccent[1], goldAccent[2])
	pdf.SetLineWidth(1.5)
	pdf.Rect(10, 10, pageWidth-20, pageHeight-20, "D")
	pdf.SetDrawColor(brandRed[0], brandRed[1], brandRed[2])
	pdf.SetLineWidth(2.5)
	pdf.Rect(13, 13, pageWidth-26, pageHeight-26, "D")
	pdf.SetDrawColor(goldAccent[0], goldAccent[1], goldAccent[2])
	pdf.SetLineWidth(0.5)
	pdf.Rect(15, 15, pageWidth-30, pageHeight-30, "D")

	// Header.
	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetTextColor(brandRed[0], brandRed[1], brandRed[2])
	pdf.SetXY(0, 26)
	pdf.CellFormat(pageWidth, 10, strings.ToUpper(r.institution), "", 1, "C", false, 0, "")

	if r.motto != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(pageWidth, 6, r.motto, "", 1, "C", false, 0, "")
	}

	// Title framed by rule lines.
	titleY := 56.0
	pdf.SetDrawColor(goldAccent[0], goldAccent[1], goldAccent[2])
	pdf.SetLineWidth(0.5)
	pdf.Line(pageWidth/2-65, titleY-6, pageWidth/2+65, titleY-6)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetTextColor(brandRed[0], brandRed[1], brandRed[2])
	pdf.SetXY(0, titleY-4)
	pdf.CellFormat(pageWidth, 12, "NO DUES CERTIFICATE", "", 1, "C", false, 0, "")
	pdf.Line(pageWidth/2-65, titleY+9, pageWidth/2+65, titleY+9)

	// Body.
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(80, 80, 80)
	pdf.SetXY(0, 72)
	pdf.CellFormat(pageWidth, 6, "This is to certify that", "", 1, "C", false, 0, "")

	pdf.SetFont("Times", "BI", 30)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(pageWidth, 16, data.StudentName, "", 1, "C", false, 0, "")
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(pageWidth/2-55, pdf.GetY(), pageWidth/2+55, pdf.GetY())

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(pageWidth, 8, fmt.Sprintf("Registration No.: %s", data.RegistrationNo), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(pageWidth, 7, "has successfully cleared all dues from all departments", "", 1, "C", false, 0, "")
	pdf.CellFormat(pageWidth, 7, fmt.Sprintf("of %s and is hereby granted", r.institution), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(brandRed[0], brandRed[1], brandRed[2])
	pdf.CellFormat(pageWidth, 12, "NO DUES CLEARANCE", "", 1, "C", false, 0, "")

	// Academic details.
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(0, 0, 0)
	course := valueOrNA(data.Course)
	branch := valueOrNA(data.Branch)
	pdf.CellFormat(pageWidth, 6, fmt.Sprintf("Course: %s   -   Branch: %s", course, branch), "", 1, "C", false, 0, "")
	pdf.CellFormat(pageWidth, 6, fmt.Sprintf("Session: %s - %s", valueOrNA(data.AdmissionYear), valueOrNA(data.PassingYear)), "", 1, "C", false, 0, "")

	// Footer: issue date left, signature block right, verification id bottom left.
	footerY := pageHeight - 45
	issued := data.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(30, footerY)
	pdf.CellFormat(90, 6, fmt.Sprintf("Date of Issue: %s", issued.Format("2 January 2006")), "", 0, "L", false, 0, "")

	pdf.SetDrawColor(brandRed[0], brandRed[1], brandRed[2])
	pdf.SetLineWidth(0.5)
	pdf.Line(pageWidth-85, footerY-2, pageWidth-35, footerY-2)
	pdf.SetXY(pageWidth-85, footerY)
	pdf.CellFormat(50, 6, "Registration Office", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(pageWidth-85, footerY+6)
	pdf.CellFormat(50, 5, r.institution, "", 1, "C", false, 0, "")

	if data.TransactionID != "" {
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.SetXY(30, pageHeight-28)
		pdf.CellFormat(120, 5, fmt.Sprintf("Verification ID: %s", data.TransactionID), "", 1, "L", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func valueOrNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return "N/A"
	}
	return v
}
