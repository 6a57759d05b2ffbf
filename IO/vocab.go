package IO

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/yukunfeng/nnfl/utils"
	"gonum.org/v1/gonum/mat"
)

// CorpusFiles lists the non-hidden regular files of dir in name order.
func CorpusFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus files: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("corpus files: none under %s", dir)
	}
	return files, nil
}

// BuildVocab assigns ids to tokens in first-appearance order over every
// non-hidden file in corpusDir, then appends oov last.
func BuildVocab(corpusDir, oov string) (Vocabulary, error) {
	files, err := CorpusFiles(corpusDir)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("build vocab: %w", err)
	}
	vocab := Vocabulary{TokenToID: make(map[string]int)}
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return Vocabulary{}, fmt.Errorf("build vocab: %w", err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
		for scanner.Scan() {
			for _, tok := range strings.Fields(scanner.Text()) {
				if _, ok := vocab.TokenToID[tok]; !ok {
					vocab.TokenToID[tok] = len(vocab.IDToToken)
					vocab.IDToToken = append(vocab.IDToToken, tok)
				}
			}
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return Vocabulary{}, fmt.Errorf("build vocab: %s: %w", filepath.Base(path), err)
		}
	}
	if len(vocab.IDToToken) == 0 {
		return Vocabulary{}, fmt.Errorf("build vocab: no tokens found under %s", corpusDir)
	}
	if _, ok := vocab.TokenToID[oov]; !ok {
		vocab.TokenToID[oov] = len(vocab.IDToToken)
		vocab.IDToToken = append(vocab.IDToToken, oov)
	}
	return vocab, nil
}

// RandomWordVec builds a uniform [-1, 1) vector table sized to the
// vocabulary, for runs without pre-trained vectors.
func RandomWordVec(vocab Vocabulary, dim int, src rand.Source) (*mat.Dense, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("random word vec: invalid dimension %d", dim)
	}
	n := len(vocab.IDToToken)
	if n == 0 {
		return nil, fmt.Errorf("random word vec: empty vocabulary")
	}
	return mat.NewDense(n, dim, utils.RandomArray(n*dim, 1.0, src)), nil
}
