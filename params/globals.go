package params

// TrainingConfig holds every knob of a training run. The zero value is not
// useful; start from Defaults and override.
type TrainingConfig struct {
	// Network shape
	HiddenSizes []int  // hidden-layer widths, outermost first
	ActFunc     string // "tanh" or "sigmoid"
	UseBias     bool
	UpWordVec   bool // whether training updates the word-vector table

	// Optimization
	LearningRate float64
	Minibatch    int
	MaxEpochs    int
	Seed         int64
	Verbose      bool

	// Data windows (token indices kept left/right of the target verb)
	LeftWin  int
	RightWin int
	UseVerb  bool
	Lower    bool
	OOV      string

	// Dataset split fractions; the three must sum to at most 1.
	TrainPart      float64
	TestPart       float64
	ValidationPart float64
}

// Defaults returns the standard experiment configuration.
func Defaults() TrainingConfig {
	return TrainingConfig{
		HiddenSizes: []int{30, 20, 10},
		ActFunc:     "tanh",
		UseBias:     true,
		UpWordVec:   false,

		LearningRate: 0.01,
		Minibatch:    5,
		MaxEpochs:    100,
		Seed:         1,
		Verbose:      false,

		LeftWin:  5,
		RightWin: 5,
		UseVerb:  true,
		Lower:    true,
		OOV:      "O_O_V",

		TrainPart:      0.8,
		TestPart:       0.2,
		ValidationPart: 0.0,
	}
}
