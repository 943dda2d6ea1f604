package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/sales.txt
var salesRaw string

// Sales returns the trimmed system prompt for the sales assistant.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func Sales() string {
	return strings.TrimSpace(salesRaw)
}
