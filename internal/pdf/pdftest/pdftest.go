// Package pdftest builds small, structurally valid PDF documents for tests.
// Page i (1-based) gets a MediaBox width of BaseWidth+i so tests can tell
// pages apart after a split.
package pdftest

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	BaseWidth  = 100
	pageHeight = 800
)

// Build returns a PDF with n pages.
func Build(n int) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, 2+2*n)

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]byte, 0, 8*n)
	for i := 0; i < n; i++ {
		kids = fmt.Appendf(kids, "%d 0 R ", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", bytes.TrimSpace(kids), n))

	for i := 0; i < n; i++ {
		pageNr := i + 1
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << >> /Contents %d 0 R >>",
			WidthOf(pageNr), pageHeight, 4+2*i))
		content := fmt.Sprintf("%% page %d\n0 0 m %d %d l S", pageNr, WidthOf(pageNr), pageHeight)
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

// WidthOf is the MediaBox width Build assigns to a 1-based page number.
func WidthOf(pageNr int) int {
	return BaseWidth + pageNr
}

// PageNumbers reads a PDF produced from Build (or split from one) and maps
// each page back to its page number in the original document.
func PageNumbers(r io.ReadSeeker) ([]int, error) {
	dims, err := api.PageDims(r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	pages := make([]int, len(dims))
	for i, d := range dims {
		pages[i] = int(math.Round(d.Width)) - BaseWidth
	}
	return pages, nil
}
