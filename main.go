package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/yukunfeng/nnfl/IO"
	"github.com/yukunfeng/nnfl/fnn"
	"github.com/yukunfeng/nnfl/params"
	"github.com/yukunfeng/nnfl/utils"
	"gonum.org/v1/gonum/mat"
)

var (
	dataDir    string
	wordVecTxt string
	vecDim     int
	hiddenCSV  string
	actName    string
	verboseLog bool
	learnRate  float64
	minibatch  int
	maxEpochs  int
	updateVecs bool
	bpeVocab   int
	tokPath    string
)

func init() {
	flag.StringVar(&dataDir, "data", "data/sample", "directory of verb-frame data files")
	flag.StringVar(&wordVecTxt, "wordvec", "", "GloVe-format word vectors; empty builds random vectors from the data")
	flag.IntVar(&vecDim, "dim", 50, "random word-vector dimension when -wordvec is empty")
	flag.StringVar(&hiddenCSV, "hidden", "30,20,10", "comma-separated hidden-layer widths")
	flag.StringVar(&actName, "act", "tanh", "hidden activation: tanh or sigmoid")
	flag.BoolVar(&verboseLog, "verbose", false, "print per-epoch training lines")
	flag.Float64Var(&learnRate, "lr", 0.01, "SGD learning rate")
	flag.IntVar(&minibatch, "minibatch", 5, "minibatch size")
	flag.IntVar(&maxEpochs, "epochs", 100, "maximum training epochs per verb")
	flag.BoolVar(&updateVecs, "upvec", false, "update word vectors during training")
	flag.IntVar(&bpeVocab, "bpe", 0, "subword BPE vocabulary size when -wordvec is empty; 0 uses whitespace tokens")
	flag.StringVar(&tokPath, "tok", "tokenizer.json", "cache path for the trained BPE tokenizer")
}

// applyFlags folds the parsed command line into the default config. Training
// with a subword vocabulary switches the OOV token to the tokenizer's
// reserved unknown marker.
func applyFlags(conf params.TrainingConfig) (params.TrainingConfig, error) {
	hidden, err := parseHidden(hiddenCSV)
	if err != nil {
		return conf, err
	}
	conf.HiddenSizes = hidden
	conf.ActFunc = actName
	conf.Verbose = verboseLog
	conf.LearningRate = learnRate
	conf.Minibatch = minibatch
	conf.MaxEpochs = maxEpochs
	conf.UpWordVec = updateVecs
	if wordVecTxt == "" && bpeVocab > 0 {
		conf.OOV = IO.UnkToken
	}
	return conf, nil
}

func main() {
	flag.Parse()

	conf, err := applyFlags(params.Defaults())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(conf params.TrainingConfig) error {
	src := rand.NewPCG(uint64(conf.Seed), uint64(conf.Seed))
	rng := rand.New(src)

	vocab, wordVec, err := loadVectors(conf, src)
	if err != nil {
		return err
	}

	loader, err := IO.NewDataLoader(dataDir, vocab, IO.LoaderConfig{
		LeftWin:  conf.LeftWin,
		RightWin: conf.RightWin,
		UseVerb:  conf.UseVerb,
		Lower:    conf.Lower,
		OOV:      conf.OOV,
	})
	if err != nil {
		return err
	}
	train, test, _, err := loader.Split(conf.TrainPart, conf.TestPart, conf.ValidationPart, rng)
	if err != nil {
		return err
	}

	for _, verb := range loader.Verbs() {
		trainSet := train[verb]
		if len(trainSet.X) == 0 {
			continue
		}
		net, err := fnn.NewFNN(trainSet.X, trainSet.Y, wordVec, fnn.Config{
			HiddenSizes:   conf.HiddenSizes,
			Act:           fnn.ActFunc(conf.ActFunc),
			UseBias:       conf.UseBias,
			UpdateWordVec: conf.UpWordVec,
			Seed:          conf.Seed,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", verb, err)
		}
		epochs, err := net.MinibatchTrain(conf.LearningRate, conf.Minibatch, conf.MaxEpochs, conf.Verbose)
		if err != nil {
			return fmt.Errorf("%s: %w", verb, err)
		}

		trainErr, err := evaluate(net, trainSet)
		if err != nil {
			return fmt.Errorf("%s: %w", verb, err)
		}
		line := fmt.Sprintf("verb: %s, epochs: %d, train zero-one loss: %.4f", verb, epochs, trainErr)
		if testSet := test[verb]; len(testSet.X) > 0 {
			testErr, err := evaluate(net, testSet)
			if err != nil {
				return fmt.Errorf("%s: %w", verb, err)
			}
			line += fmt.Sprintf(", test zero-one loss: %.4f", testErr)
		}
		fmt.Println(line)
	}
	return nil
}

func loadVectors(conf params.TrainingConfig, src rand.Source) (IO.Vocabulary, *mat.Dense, error) {
	if wordVecTxt != "" {
		vocab, wordVec, err := IO.LoadWordVectors(wordVecTxt)
		if err != nil {
			return IO.Vocabulary{}, nil, err
		}
		return IO.AppendOOV(vocab, wordVec, conf.OOV, 0)
	}
	vocab, err := buildDataVocab(conf)
	if err != nil {
		return IO.Vocabulary{}, nil, err
	}
	wordVec, err := IO.RandomWordVec(vocab, vecDim, src)
	if err != nil {
		return IO.Vocabulary{}, nil, err
	}
	return vocab, wordVec, nil
}

// buildDataVocab derives a vocabulary from the data directory itself: a
// trained BPE subword vocabulary when -bpe is set, plain whitespace tokens
// otherwise.
func buildDataVocab(conf params.TrainingConfig) (IO.Vocabulary, error) {
	if bpeVocab <= 0 {
		return IO.BuildVocab(dataDir, conf.OOV)
	}
	files, err := IO.CorpusFiles(dataDir)
	if err != nil {
		return IO.Vocabulary{}, err
	}
	tok, err := IO.TrainOrLoadTokenizer(files, tokPath, bpeVocab)
	if err != nil {
		return IO.Vocabulary{}, err
	}
	return tok.Vocab(), nil
}

func evaluate(net *fnn.FNN, set IO.Dataset) (float64, error) {
	preds, err := net.Predict(set.X)
	if err != nil {
		return 0, err
	}
	return utils.ZeroOneLoss(set.Y, preds)
}

func parseHidden(csv string) ([]int, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(csv, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad -hidden value %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}
