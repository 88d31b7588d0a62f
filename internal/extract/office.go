package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractOffice handles OpenDocument text and RTF through cat's format detection.
func extractOffice(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract office document: %w", err)
	}
	return strings.TrimSpace(text), nil
}
