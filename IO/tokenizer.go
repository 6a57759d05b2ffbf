package IO

import (
	"fmt"
	"os"
	"path/filepath"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/models"
	"github.com/sugarme/tokenizer/normalizers"
	"github.com/sugarme/tokenizer/pretokenizers"
	"github.com/sugarme/tokenizer/trainers"
)

// Special tokens reserved at the start of every trained subword vocabulary.
const (
	PadToken = "<pad>"
	UnkToken = "<unk>"
)

// SubwordTokenizer wraps a trained BPE tokenizer for corpora whose raw text
// has no pre-built word-vector vocabulary. The trained model is cached as a
// tokenizer.json so repeat runs skip training.
type SubwordTokenizer struct {
	tok *tk.Tokenizer
}

// TrainOrLoadTokenizer loads tokPath if it exists, otherwise trains a BPE
// model on the corpus files with an NFKC+lowercase normalizer and whitespace
// pre-tokenization, saves it to tokPath and returns it.
func TrainOrLoadTokenizer(corpusPaths []string, tokPath string, vocabSize int) (*SubwordTokenizer, error) {
	if _, err := os.Stat(tokPath); err == nil {
		t, err := tk.FromFile(tokPath)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
		return &SubwordTokenizer{tok: t}, nil
	}

	bpe := models.NewBPE()
	t := tk.NewTokenizer(bpe)
	t.WithNormalizer(normalizers.NewSequence(
		normalizers.NewNFKC(),
		normalizers.NewLowercase(),
	))
	t.WithPreTokenizer(pretokenizers.NewWhitespaceSplit())

	tr := trainers.NewBpeTrainer()
	tr.VocabSize = vocabSize
	tr.SpecialTokens = []string{PadToken, UnkToken}

	if err := t.Train(tr, corpusPaths); err != nil {
		return nil, fmt.Errorf("train tokenizer: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(tokPath), 0o755); err != nil {
		return nil, fmt.Errorf("train tokenizer: %w", err)
	}
	if err := t.Save(tokPath); err != nil {
		return nil, fmt.Errorf("save tokenizer: %w", err)
	}
	return &SubwordTokenizer{tok: t}, nil
}

// Encode turns raw text into token ids.
func (s *SubwordTokenizer) Encode(text string) ([]int, error) {
	enc, err := s.tok.EncodeSingle(text)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	out := make([]int, len(enc.Ids))
	for i, id := range enc.Ids {
		out[i] = int(id)
	}
	return out, nil
}

// Vocab exports the tokenizer's vocabulary in id order.
func (s *SubwordTokenizer) Vocab() Vocabulary {
	raw := s.tok.GetVocab(true)
	id2tok := make([]string, len(raw))
	tok2id := make(map[string]int, len(raw))
	for tok, id := range raw {
		tok2id[tok] = id
		id2tok[id] = tok
	}
	return Vocabulary{TokenToID: tok2id, IDToToken: id2tok}
}
