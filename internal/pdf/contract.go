package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders documents; mocked in handler tests.
type Generator interface {
	Contract(w io.Writer, data ContractData) error
}

// DocumentGenerator draws with a UTF-8 TTF font when FontPath is set and
// falls back to the built-in Helvetica otherwise.
type DocumentGenerator struct {
	FontPath string
	fontName string
}

type ContractData struct {
	ContractID   string
	TaskTitle    string
	Requester    string
	Helper       string
	AgreedAmount string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewDocumentGenerator(fontPath string) *DocumentGenerator {
	g := &DocumentGenerator{FontPath: fontPath, fontName: "Helvetica"}
	if fontPath != "" {
		g.fontName = "DejaVu"
	}
	return g
}

func (g *DocumentGenerator) Contract(w io.Writer, data ContractData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Contract "+data.ContractID, true)
	pdf.SetAuthor("HelpFinder", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	g.addUTF8Font(pdf)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, "SERVICE CONTRACT", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("No. %s of %s", data.ContractID, data.CreatedAt.UTC().Format("02.01.2006")),
		"", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.sectionTitle(pdf, "Parties")
	g.kvLine(pdf, "Requester", data.Requester)
	g.kvLine(pdf, "Helper", data.Helper)
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Subject and price")
	g.kvLine(pdf, "Task", data.TaskTitle)
	g.kvLine(pdf, "Agreed amount", data.AgreedAmount)
	g.kvLine(pdf, "Status", data.Status)
	g.kvLine(pdf, "Last change", data.UpdatedAt.UTC().Format(time.RFC3339))
	pdf.Ln(1)

	pdf.SetFont(g.fontName, "", 11)
	pdf.MultiCell(0, 6, "The helper performs the task described above for the agreed amount. "+
		"The requester approves the work once it is delivered. Payment is settled between the parties.", "", "L", false)
	pdf.Ln(2)
	g.hr(pdf)

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	return pdf.Output(w)
}

func (g *DocumentGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *DocumentGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *DocumentGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *DocumentGenerator) addUTF8Font(pdf *gofpdf.Fpdf) {
	if g.FontPath == "" {
		return
	}
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}
