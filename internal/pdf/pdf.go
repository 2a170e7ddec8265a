package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

const MIMEType = "application/pdf"

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount opens data as a PDF and returns its page count. It reads through
// its own reader, so the caller's slice and any stream over it are left
// untouched.
func PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("empty document")
	}
	count, err := api.PageCount(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	if count < 0 {
		return 0, fmt.Errorf("invalid page count %d", count)
	}
	return count, nil
}

// Split produces one PDF per range that resolves to at least one page.
// Ranges are clamped against the document's page count again here, since
// callers may hand over ranges that were never checked. Ranges that clamp to
// nothing are omitted. If the source cannot be decoded, no outputs are
// returned.
func Split(data []byte, spec models.RangeSpec) ([]models.SplitOutput, error) {
	if len(data) == 0 {
		return nil, apperr.Decode("could not decode PDF", errors.New("empty document"))
	}

	pdfContext, err := api.ReadAndValidate(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return nil, apperr.Decode("could not decode PDF", err)
	}
	totalPages := pdfContext.PageCount

	outputs := make([]models.SplitOutput, 0, len(spec))
	for _, r := range spec {
		pageNrs := PageNumbers(r, totalPages)
		if len(pageNrs) == 0 {
			continue
		}

		rangeContext, err := pdfcpu.ExtractPages(pdfContext, pageNrs, false)
		if err != nil {
			return nil, apperr.Decode(fmt.Sprintf("could not extract pages %s", r.Label()), err)
		}

		var buf bytes.Buffer
		if err := api.WriteContext(rangeContext, &buf); err != nil {
			return nil, apperr.Decode(fmt.Sprintf("could not write pages %s", r.Label()), err)
		}

		outputs = append(outputs, models.SplitOutput{
			Range:     r,
			Data:      buf.Bytes(),
			PageCount: len(pageNrs),
		})
	}

	return outputs, nil
}

// PageNumbers converts a 1-indexed inclusive range into the 1-based page
// numbers it selects from a document with totalPages pages, using the
// zero-indexed half-open slice [start-1, min(end, totalPages)).
func PageNumbers(r models.PageRange, totalPages int) []int {
	startIdx := max(0, r.Start-1)
	endIdx := min(r.End, totalPages)
	if startIdx >= totalPages || startIdx >= endIdx {
		return nil
	}

	pageNrs := make([]int, 0, endIdx-startIdx)
	for idx := startIdx; idx < endIdx; idx++ {
		pageNrs = append(pageNrs, idx+1)
	}
	return pageNrs
}

// MatchRanges returns the ranges of spec that Split turns into an output, in
// the same order Split emits them.
func MatchRanges(spec models.RangeSpec, totalPages int) models.RangeSpec {
	matched := models.RangeSpec{}
	for _, r := range spec {
		if len(PageNumbers(r, totalPages)) > 0 {
			matched = append(matched, r)
		}
	}
	return matched
}
