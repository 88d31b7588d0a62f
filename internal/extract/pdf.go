package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageMarker returns the line inserted before the text of page n (1-based).
func PageMarker(n int) string {
	return fmt.Sprintf("--- Page %d ---", n)
}

func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		buf.WriteByte('\n')
		buf.WriteString(PageMarker(i))
		buf.WriteByte('\n')
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
