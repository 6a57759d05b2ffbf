package IO

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yukunfeng/nnfl/utils"
)

// Dataset pairs token-index samples with their labels, index-aligned.
type Dataset struct {
	X [][]int
	Y []int
}

// LoaderConfig controls how raw verb-frame records become fixed-width
// token-index samples.
type LoaderConfig struct {
	LeftWin  int // tokens kept left of the verb; -1 keeps all
	RightWin int // tokens kept right of the verb; -1 keeps all
	UseVerb  bool
	Lower    bool
	OOV      string
}

// DataLoader reads a directory of verb-frame files. Each file is named for
// its verb; every line is
//
//	frame_id \t left words \t verb \t right words
//
// with words space separated. Empty left or right contexts keep their tab.
// A line that does not have exactly four fields is a hard error: skipping it
// would break the sample/label correspondence.
type DataLoader struct {
	verb2x map[string][][]int
	verb2y map[string][]int
}

// NewDataLoader parses every file under dataPath against the vocabulary.
// Unknown words map to the OOV index; short contexts are padded with it.
func NewDataLoader(dataPath string, vocab Vocabulary, conf LoaderConfig) (*DataLoader, error) {
	oovIndex, ok := vocab.TokenToID[conf.OOV]
	if !ok {
		return nil, fmt.Errorf("data loader: vocabulary has no OOV entry %q", conf.OOV)
	}
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return nil, fmt.Errorf("data loader: %w", err)
	}

	dl := &DataLoader{
		verb2x: make(map[string][][]int),
		verb2y: make(map[string][]int),
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		verb := entry.Name()
		if err := dl.loadFile(filepath.Join(dataPath, verb), verb, vocab, oovIndex, conf); err != nil {
			return nil, err
		}
	}
	if len(dl.verb2x) == 0 {
		return nil, fmt.Errorf("data loader: no data files under %s", dataPath)
	}
	return dl, nil
}

func (dl *DataLoader) loadFile(path, verb string, vocab Vocabulary, oovIndex int, conf LoaderConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("data loader: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if conf.Lower {
			line = strings.ToLower(line)
		}
		items := strings.Split(line, "\t")
		if len(items) != 4 {
			return fmt.Errorf("data loader: %s line %d: got %d fields, want 4", verb, lineNo, len(items))
		}
		frameID, err := strconv.Atoi(strings.TrimSpace(items[0]))
		if err != nil {
			return fmt.Errorf("data loader: %s line %d: bad frame id: %w", verb, lineNo, err)
		}

		left, err := indexFields(items[1], vocab, conf.OOV)
		if err != nil {
			return fmt.Errorf("data loader: %s line %d: %w", verb, lineNo, err)
		}
		verbToks, err := indexFields(items[2], vocab, conf.OOV)
		if err != nil {
			return fmt.Errorf("data loader: %s line %d: %w", verb, lineNo, err)
		}
		right, err := indexFields(items[3], vocab, conf.OOV)
		if err != nil {
			return fmt.Errorf("data loader: %s line %d: %w", verb, lineNo, err)
		}

		left, err = utils.TruncIndexs(left, conf.LeftWin, utils.TruncLeft, oovIndex, true)
		if err != nil {
			return fmt.Errorf("data loader: %s line %d: %w", verb, lineNo, err)
		}
		right, err = utils.TruncIndexs(right, conf.RightWin, utils.TruncRight, oovIndex, true)
		if err != nil {
			return fmt.Errorf("data loader: %s line %d: %w", verb, lineNo, err)
		}

		var sample []int
		sample = append(sample, left...)
		if conf.UseVerb {
			sample = append(sample, verbToks...)
		}
		sample = append(sample, right...)

		dl.verb2x[verb] = append(dl.verb2x[verb], sample)
		dl.verb2y[verb] = append(dl.verb2y[verb], frameID)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("data loader: %s: %w", verb, err)
	}
	return nil
}

func indexFields(text string, vocab Vocabulary, oov string) ([]int, error) {
	fields := strings.Fields(text)
	out := make([]int, 0, len(fields))
	for _, tok := range fields {
		id, err := vocab.Lookup(tok, oov)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Verbs lists the loaded verbs in sorted order.
func (dl *DataLoader) Verbs() []string {
	verbs := make([]string, 0, len(dl.verb2x))
	for verb := range dl.verb2x {
		verbs = append(verbs, verb)
	}
	sort.Strings(verbs)
	return verbs
}

// Data returns the samples and labels loaded for one verb.
func (dl *DataLoader) Data(verb string) (Dataset, error) {
	x, ok := dl.verb2x[verb]
	if !ok {
		return Dataset{}, fmt.Errorf("data loader: unknown verb %q", verb)
	}
	return Dataset{X: x, Y: dl.verb2y[verb]}, nil
}

// Split divides every verb's data into train, test and validation parts,
// proportionally per frame label so rare frames appear in each part. The
// rounding loss of the integer splits goes back to the train part. Each part
// is shuffled with rng while keeping samples and labels paired.
func (dl *DataLoader) Split(trainPart, testPart, validationPart float64, rng *rand.Rand) (train, test, validation map[string]Dataset, err error) {
	if trainPart < 0 || testPart < 0 || validationPart < 0 || trainPart+testPart+validationPart > 1.0 {
		return nil, nil, nil, fmt.Errorf("split: invalid parts train=%g test=%g validation=%g",
			trainPart, testPart, validationPart)
	}

	train = make(map[string]Dataset)
	test = make(map[string]Dataset)
	validation = make(map[string]Dataset)
	for _, verb := range dl.Verbs() {
		x := dl.verb2x[verb]
		y := dl.verb2y[verb]

		frames := make(map[int][][]int)
		order := []int{}
		for i, frame := range y {
			if _, ok := frames[frame]; !ok {
				order = append(order, frame)
			}
			frames[frame] = append(frames[frame], x[i])
		}

		var trainSet, testSet, validationSet Dataset
		for _, frame := range order {
			fx := frames[frame]
			nTrain := int(trainPart * float64(len(fx)))
			nTest := int(testPart * float64(len(fx)))
			nValidation := int(validationPart * float64(len(fx)))
			used := nTrain + nTest + nValidation
			// Integer truncation loses samples; give them to train.
			loss := int((trainPart+testPart+validationPart)*float64(len(fx))) - used

			appendPart(&trainSet, fx[:nTrain], frame)
			appendPart(&testSet, fx[nTrain:nTrain+nTest], frame)
			appendPart(&validationSet, fx[nTrain+nTest:used], frame)
			appendPart(&trainSet, fx[used:used+loss], frame)
		}

		for _, part := range []*Dataset{&trainSet, &testSet, &validationSet} {
			if len(part.X) == 0 {
				continue
			}
			part.X, part.Y, err = utils.ShuffleTwo(part.X, part.Y, rng)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("split: %w", err)
			}
		}
		train[verb] = trainSet
		test[verb] = testSet
		validation[verb] = validationSet
	}
	return train, test, validation, nil
}

func appendPart(part *Dataset, x [][]int, frame int) {
	for _, sample := range x {
		part.X = append(part.X, sample)
		part.Y = append(part.Y, frame)
	}
}
