// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Page describes one generated page.
type Page struct {
	Width, Height float64
	Gray          float64 // fill level 0 (black) to 1 (white); 1 draws nothing
	Bleed         float64 // when positive, a TrimBox inset this far on every side
}

// Letter is a blank US Letter page.
var Letter = Page{Width: 612, Height: 792, Gray: 1}

// Build returns a PDF with one page per entry in pages.
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [ %s] /Count %d >>", kids, len(pages)))
	for i, p := range pages {
		content := ""
		if p.Gray < 1 {
			content = fmt.Sprintf("%.3f g 0 0 %.2f %.2f re f", p.Gray, p.Width, p.Height)
		}
		trim := ""
		if p.Bleed > 0 {
			trim = fmt.Sprintf("/TrimBox [%.2f %.2f %.2f %.2f] ", p.Bleed, p.Bleed, p.Width-p.Bleed, p.Height-p.Bleed)
		}
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] %s/Resources << >> /Contents %d 0 R >>",
			p.Width, p.Height, trim, 4+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// WriteFile writes a generated PDF into dir and returns its path.
func WriteFile(t testing.TB, dir, name string, pages ...Page) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages...), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteAssets writes stand-in overlay assets into dir under the given file
// names, each w by h points.
func WriteAssets(t testing.TB, dir string, w, h float64, names ...string) {
	t.Helper()
	for _, n := range names {
		WriteFile(t, dir, n, Page{Width: w, Height: h, Gray: 0})
	}
}
