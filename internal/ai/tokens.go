package ai

import (
	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// CountTokens returns the token count of text under the given model's
// encoding. Unknown models fall back to cl100k_base; if even that fails we
// approximate rather than error, since counts are bookkeeping, not billing.
func CountTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return len(text) / 4
		}
	}
	return len(enc.Encode(text, nil, nil))
}
