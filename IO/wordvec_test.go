package IO

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWordVectors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vec.txt",
		"the 0.1 0.2 0.3\n"+
			"\n"+
			"cat -1.0 2.0 3.5\n")

	vocab, wordVec, err := LoadWordVectors(path)
	require.NoError(t, err)

	require.Equal(t, []string{"the", "cat"}, vocab.IDToToken)
	assert.Equal(t, 0, vocab.TokenToID["the"])
	assert.Equal(t, 1, vocab.TokenToID["cat"])

	r, c := wordVec.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.InDelta(t, 0.2, wordVec.At(0, 1), 1e-12)
	assert.InDelta(t, 3.5, wordVec.At(1, 2), 1e-12)
}

func TestLoadWordVectorsMalformed(t *testing.T) {
	dir := t.TempDir()

	_, _, err := LoadWordVectors(writeFile(t, dir, "short.txt", "a 1.0 2.0\nb 1.0\n"))
	assert.ErrorContains(t, err, "line 2")

	_, _, err = LoadWordVectors(writeFile(t, dir, "nan.txt", "a 1.0 x\n"))
	assert.ErrorContains(t, err, "line 1")

	_, _, err = LoadWordVectors(writeFile(t, dir, "empty.txt", "\n\n"))
	assert.ErrorContains(t, err, "no vectors")

	_, _, err = LoadWordVectors(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestAppendOOV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vec.txt", "a 1 2\nb 3 4\n")
	vocab, wordVec, err := LoadWordVectors(path)
	require.NoError(t, err)

	vocab, grown, err := AppendOOV(vocab, wordVec, "O_O_V", 0)
	require.NoError(t, err)
	r, c := grown.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, vocab.TokenToID["O_O_V"])
	assert.Zero(t, grown.At(2, 0))
	assert.InDelta(t, 4.0, grown.At(1, 1), 1e-12)

	// Idempotent when the token already exists.
	again, same, err := AppendOOV(vocab, grown, "O_O_V", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, len(again.IDToToken))
	assert.True(t, same == grown)
}

func TestVocabularyLookup(t *testing.T) {
	vocab := Vocabulary{
		TokenToID: map[string]int{"a": 0, "O_O_V": 1},
		IDToToken: []string{"a", "O_O_V"},
	}
	id, err := vocab.Lookup("a", "O_O_V")
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	id, err = vocab.Lookup("zzz", "O_O_V")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = vocab.Lookup("zzz", "missing")
	assert.Error(t, err)
}
