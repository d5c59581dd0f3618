package IO

import (
	"errors"
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	"github.com/manningwu07/storyforge/utils"
)

var ErrNoTokenizer = errors.New("no tokenizer available")

// Tokenizer maps prompts to the model's ids and back. Decode drops special
// tokens (<|endoftext|>, <pad>, ...).
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) string
}

// LoadTokenizer prefers the tokenizer.json saved next to the model and falls
// back to a named tiktoken encoding.
func LoadTokenizer(tokPath, encoding string) (Tokenizer, error) {
	if tokPath != "" && utils.FileExists(tokPath) {
		return LoadHFTokenizer(tokPath)
	}
	if encoding != "" {
		return LoadTiktoken(encoding)
	}
	return nil, fmt.Errorf("%w: %s not found and no fallback encoding", ErrNoTokenizer, tokPath)
}

// ---- tokenizer.json (HF format) ----

type HFTokenizer struct {
	tok *tk.Tokenizer
}

func LoadHFTokenizer(path string) (*HFTokenizer, error) {
	t, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &HFTokenizer{tok: t}, nil
}

func (h *HFTokenizer) Encode(text string) ([]int, error) {
	enc, err := h.tok.EncodeSingle(text)
	if err != nil {
		return nil, err
	}
	return enc.Ids, nil
}

func (h *HFTokenizer) Decode(ids []int) string {
	return h.tok.Decode(ids, true)
}

// ---- tiktoken ----

// Special tokens we know about across the tiktoken encodings. Only the ones a
// given encoding maps to a single id are treated as special.
var knownSpecials = []string{
	"<|endoftext|>",
	"<|fim_prefix|>",
	"<|fim_middle|>",
	"<|fim_suffix|>",
	"<|endofprompt|>",
}

type TiktokenTokenizer struct {
	enc     *tiktoken.Tiktoken
	special map[int]bool
}

func LoadTiktoken(encoding string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tiktoken %s: %w", encoding, err)
	}
	special := make(map[int]bool)
	for _, s := range knownSpecials {
		ids := enc.Encode(s, []string{"all"}, nil)
		if len(ids) == 1 {
			special[ids[0]] = true
		}
	}
	return &TiktokenTokenizer{enc: enc, special: special}, nil
}

func (t *TiktokenTokenizer) Encode(text string) ([]int, error) {
	return t.enc.EncodeOrdinary(text), nil
}

func (t *TiktokenTokenizer) Decode(ids []int) string {
	kept := make([]int, 0, len(ids))
	for _, id := range ids {
		if !t.special[id] {
			kept = append(kept, id)
		}
	}
	return t.enc.Decode(kept)
}
