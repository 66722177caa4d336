// Package tokencount estimates token counts for budgeting and history
// truncation.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	once     sync.Once
	encoding *tiktoken.Tiktoken
)

// Estimate returns the token count of text under the cl100k_base encoding.
// When the encoding is unavailable (offline environments) it falls back to
// a bytes/4 heuristic, which is close enough for budget trimming.
func Estimate(text string) int {
	if text == "" {
		return 0
	}

	once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})

	if encoding == nil {
		return len(text)/4 + 1
	}
	return len(encoding.Encode(text, nil, nil))
}
