package IO

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Vocabulary maps tokens to word-vector row indices and back.
type Vocabulary struct {
	TokenToID map[string]int
	IDToToken []string
}

// Lookup returns the index of tok, falling back to oov for unknown tokens.
func (v Vocabulary) Lookup(tok, oov string) (int, error) {
	if id, ok := v.TokenToID[tok]; ok {
		return id, nil
	}
	id, ok := v.TokenToID[oov]
	if !ok {
		return 0, fmt.Errorf("vocab: unknown token %q and no %q entry", tok, oov)
	}
	return id, nil
}

// LoadWordVectors reads GloVe-style text vectors: one word followed by its
// float values per line, whitespace separated. Blank lines are skipped;
// anything else malformed is an error carrying the line number. It returns
// the vocabulary in file order and the V x D vector table.
func LoadWordVectors(path string) (Vocabulary, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return Vocabulary{}, nil, fmt.Errorf("load word vectors: %w", err)
	}
	defer f.Close()

	vocab := Vocabulary{TokenToID: make(map[string]int)}
	var data []float64
	dim := 0
	lineNo := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return Vocabulary{}, nil, fmt.Errorf("load word vectors: line %d: no vector values", lineNo)
		}
		if dim == 0 {
			dim = len(fields) - 1
		} else if len(fields)-1 != dim {
			return Vocabulary{}, nil, fmt.Errorf("load word vectors: line %d: got %d values, want %d", lineNo, len(fields)-1, dim)
		}
		word := fields[0]
		if _, ok := vocab.TokenToID[word]; ok {
			return Vocabulary{}, nil, fmt.Errorf("load word vectors: line %d: duplicate word %q", lineNo, word)
		}
		for _, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Vocabulary{}, nil, fmt.Errorf("load word vectors: line %d: %w", lineNo, err)
			}
			data = append(data, v)
		}
		vocab.TokenToID[word] = len(vocab.IDToToken)
		vocab.IDToToken = append(vocab.IDToToken, word)
	}
	if err := scanner.Err(); err != nil {
		return Vocabulary{}, nil, fmt.Errorf("load word vectors: %w", err)
	}
	if len(vocab.IDToToken) == 0 {
		return Vocabulary{}, nil, fmt.Errorf("load word vectors: %s holds no vectors", path)
	}
	return vocab, mat.NewDense(len(vocab.IDToToken), dim, data), nil
}

// AppendOOV extends the vocabulary and vector table with an out-of-
// vocabulary token whose vector is filled with padding (usually zero).
func AppendOOV(vocab Vocabulary, wordVec *mat.Dense, oov string, padding float64) (Vocabulary, *mat.Dense, error) {
	if _, ok := vocab.TokenToID[oov]; ok {
		return vocab, wordVec, nil
	}
	v, d := wordVec.Dims()
	grown := mat.NewDense(v+1, d, nil)
	grown.Slice(0, v, 0, d).(*mat.Dense).Copy(wordVec)
	for k := 0; k < d; k++ {
		grown.Set(v, k, padding)
	}
	vocab.TokenToID[oov] = v
	vocab.IDToToken = append(vocab.IDToToken, oov)
	return vocab, grown, nil
}
