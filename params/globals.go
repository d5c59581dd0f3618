package params

import "time"

// TrainingConfig is sent to the framework trainer as-is. JSON names follow the
// framework's own argument names so the server can splat them into its trainer.
type TrainingConfig struct {
	BaseModel      string  `json:"model_name_or_path" envconfig:"BASE_MODEL"`
	DatasetPath    string  `json:"train_file" envconfig:"DATASET"`
	OutputDir      string  `json:"output_dir" envconfig:"OUTPUT_DIR"`
	Epochs         int     `json:"num_train_epochs" envconfig:"EPOCHS"`
	BatchSize      int     `json:"per_device_train_batch_size" envconfig:"BATCH_SIZE"`
	GradAccumSteps int     `json:"gradient_accumulation_steps" envconfig:"GRAD_ACCUM"`
	Precision      string  `json:"precision" envconfig:"PRECISION"` // fp32 | fp16 | bf16
	EvalSteps      int     `json:"eval_steps" envconfig:"EVAL_STEPS"`
	SaveSteps      int     `json:"save_steps" envconfig:"SAVE_STEPS"`
	SaveTotalLimit int     `json:"save_total_limit" envconfig:"SAVE_TOTAL_LIMIT"` // checkpoints kept on disk
	LoggingSteps   int     `json:"logging_steps" envconfig:"LOGGING_STEPS"`
	LearningRate   float64 `json:"learning_rate" envconfig:"LR"`
	BlockSize      int     `json:"block_size" envconfig:"BLOCK_SIZE"` // tokens per training example
	Seed           int     `json:"seed" envconfig:"SEED"`

	// Used to be process-wide switches on the framework side; now they travel with the run.
	Device          string `json:"device" envconfig:"DEVICE"` // auto | cuda | mps | cpu
	DataWorkers     int    `json:"dataloader_num_workers" envconfig:"DATA_WORKERS"`
	SharingStrategy string `json:"sharing_strategy" envconfig:"SHARING_STRATEGY"`
}

type GenerationConfig struct {
	TargetWords       int     `envconfig:"TARGET_WORDS"`   // minimum words per loop call
	MaxIterations     int     `envconfig:"MAX_ITERATIONS"` // hard cap on model calls per loop call
	ChunkSize         int     `envconfig:"CHUNK_SIZE"`     // new tokens requested per call
	ContextChars      int     `envconfig:"CONTEXT_CHARS"`  // rolling prompt window, in characters
	NoRepeatNGramSize int     `envconfig:"NO_REPEAT_NGRAM"`
	Temperature       float64 `envconfig:"TEMPERATURE"`
	LengthPenalty     float64 `envconfig:"LENGTH_PENALTY"`
	DoSample          bool    `envconfig:"DO_SAMPLE"`
}

type DriverConfig struct {
	OutputPath       string `envconfig:"OUTPUT_PATH"`
	MaxFileChars     int    `envconfig:"MAX_FILE_CHARS"`
	PromptTailChars  int    `envconfig:"PROMPT_TAIL_CHARS"`
	InitialPrompt    string `envconfig:"INITIAL_PROMPT"`
	MaxRounds        int    `envconfig:"MAX_ROUNDS"`         // 0 = unlimited
	MaxStalledRounds int    `envconfig:"MAX_STALLED_ROUNDS"` // consecutive empty segments before giving up, 0 = never
	HTMLPath         string `envconfig:"HTML_PATH"`          // "" disables export
	JournalPath      string `envconfig:"JOURNAL_PATH"`       // "" disables the round journal
}

type FrameworkConfig struct {
	Transport         string        `envconfig:"TRANSPORT"` // trainer: http | redis
	Generator         string        `envconfig:"GENERATOR"` // model: http | redis | openai
	BaseURL           string        `envconfig:"BASE_URL"`
	Timeout           time.Duration `envconfig:"TIMEOUT"` // 0 = wait forever
	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB"`
	Queue             string        `envconfig:"QUEUE"`
	OpenAIBaseURL     string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIAPIKey      string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string        `envconfig:"OPENAI_MODEL"` // "" = served model named after the output dir
	TokenizerPath     string        `envconfig:"TOKENIZER"`    // "" = <output dir>/tokenizer.json
	TokenizerEncoding string        `envconfig:"TOKENIZER_ENCODING"`
}

type Settings struct {
	Training   TrainingConfig   `envconfig:"TRAINING"`
	Generation GenerationConfig `envconfig:"GEN"`
	Driver     DriverConfig     `envconfig:"DRIVER"`
	Framework  FrameworkConfig  `envconfig:"FRAMEWORK"`
	LogLevel   string           `envconfig:"LOG_LEVEL"`
}

// MaxIterations is the per-call cap on generation rounds inside the loop.
const MaxIterations = 15

var Config = Settings{
	Training: TrainingConfig{
		BaseModel:      "gpt2",
		DatasetPath:    "data/train.txt",
		OutputDir:      "results",
		Epochs:         3,
		BatchSize:      4,
		GradAccumSteps: 8,
		Precision:      "fp16",
		EvalSteps:      500,
		SaveSteps:      500,
		SaveTotalLimit: 2,
		LoggingSteps:   50,
		LearningRate:   5e-5,
		BlockSize:      128,
		Seed:           42,

		Device:          "auto",
		DataWorkers:     2,
		SharingStrategy: "file_system",
	},
	Generation: GenerationConfig{
		TargetWords:       500,
		MaxIterations:     MaxIterations,
		ChunkSize:         128,
		ContextChars:      128,
		NoRepeatNGramSize: 3,
		Temperature:       0.7,
		LengthPenalty:     1.0,
		DoSample:          true,
	},
	Driver: DriverConfig{
		OutputPath:       "story.txt",
		MaxFileChars:     100_000,
		PromptTailChars:  1024,
		InitialPrompt:    "Write a long story. Once upon a time,",
		MaxRounds:        10_000,
		MaxStalledRounds: 3,
	},
	Framework: FrameworkConfig{
		Transport:         "http",
		Generator:         "http",
		BaseURL:           "http://127.0.0.1:8000", // python model server
		RedisAddr:         "localhost:6379",
		Queue:             "storyforge:tasks",
		OpenAIBaseURL:     "http://127.0.0.1:8000/v1",
		TokenizerEncoding: "r50k_base", // gpt2 vocabulary
	},
	LogLevel: "info",
}
