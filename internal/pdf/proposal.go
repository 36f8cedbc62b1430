// Package pdf renders proposals as printable documents.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

type ProposalItem struct {
	Description string
	Value       decimal.Decimal
}

type ProposalData struct {
	Number      string
	Title       string
	PartnerName string
	ClientName  string
	ClientEmail string
	Scope       string
	Status      string
	Date        string
	ValidUntil  string
	Items       []ProposalItem
	Total       decimal.Decimal
}

// ProposalPDF returns the PDF bytes for one proposal.
func ProposalPDF(d ProposalData) ([]byte, error) {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetTitle(d.Title, true)
	p.SetAuthor(d.PartnerName, true)
	tr := p.UnicodeTranslatorFromDescriptor("")
	p.AddPage()

	p.SetFont("Helvetica", "B", 18)
	p.CellFormat(0, 10, tr(d.PartnerName), "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	p.CellFormat(0, 6, tr(fmt.Sprintf("Proposal #%s - %s", d.Number, d.Date)), "", 1, "L", false, 0, "")
	p.CellFormat(0, 6, tr("Valid until "+d.ValidUntil+" - Status "+d.Status), "", 1, "L", false, 0, "")
	p.Ln(4)

	p.SetFont("Helvetica", "B", 12)
	p.CellFormat(0, 8, tr("Prepared for"), "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	p.CellFormat(0, 6, tr(d.ClientName), "", 1, "L", false, 0, "")
	if d.ClientEmail != "" {
		p.CellFormat(0, 6, tr(d.ClientEmail), "", 1, "L", false, 0, "")
	}
	p.Ln(4)

	p.SetFont("Helvetica", "B", 14)
	p.MultiCell(0, 8, tr(d.Title), "", "L", false)
	p.SetFont("Helvetica", "", 10)
	p.MultiCell(0, 5, tr(d.Scope), "", "L", false)
	p.Ln(4)

	p.SetFillColor(230, 230, 230)
	p.SetFont("Helvetica", "B", 10)
	p.CellFormat(140, 8, tr("Description"), "1", 0, "L", true, 0, "")
	p.CellFormat(40, 8, tr("Value"), "1", 1, "R", true, 0, "")
	p.SetFont("Helvetica", "", 10)
	for _, it := range d.Items {
		p.CellFormat(140, 7, tr(it.Description), "1", 0, "L", false, 0, "")
		p.CellFormat(40, 7, it.Value.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	p.SetFont("Helvetica", "B", 11)
	p.CellFormat(140, 8, tr("Total"), "1", 0, "R", false, 0, "")
	p.CellFormat(40, 8, d.Total.StringFixed(2), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("render proposal pdf: %w", err)
	}
	return buf.Bytes(), nil
}
