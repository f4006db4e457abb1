package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Codec encodes text to token IDs and back. Token-level truncation
// depends only on this pair of operations.
type Codec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// TiktokenCodec is the production codec backed by tiktoken-go.
type TiktokenCodec struct {
	tke *tiktoken.Tiktoken
}

// NewTiktokenCodec returns a codec for the given encoding name,
// defaulting to cl100k_base.
func NewTiktokenCodec(encoding string) (*TiktokenCodec, error) {
	if encoding == "" {
		encoding = defaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %q: %w", encoding, err)
	}
	return &TiktokenCodec{tke: tke}, nil
}

func (c *TiktokenCodec) Encode(text string) []int {
	return c.tke.Encode(text, nil, nil)
}

func (c *TiktokenCodec) Decode(tokens []int) string {
	return c.tke.Decode(tokens)
}
