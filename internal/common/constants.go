package common

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvDotEnvFile     = "DOTENV_FILE"
	EnvPort           = "PORT"
	EnvMetricsEnabled = "METRICS_ENABLED"
	EnvModelDir       = "MODEL_DIR"
	EnvDataPath       = "DATA_PATH"
	EnvDatasetPath    = "DATASET_PATH"
	EnvDatasetURL     = "DATASET_URL"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvCORSOrigins    = "CORS_ORIGINS"
	EnvFeedEnabled    = "FEED_ENABLED"
	EnvTestRatio      = "TEST_RATIO"
	EnvSeed           = "SEED"
	EnvTrees          = "TREES"
	EnvMaxDepth       = "MAX_DEPTH"
)

// Configuration defaults
const (
	DefaultDotEnvFile  = ".env"
	DefaultPort        = 8000
	DefaultModelDir    = "models"
	DefaultDatasetPath = "data/titanic.csv"
	DefaultDatasetURL  = "https://raw.githubusercontent.com/datasciencedojo/datasets/master/titanic.csv"
	DefaultLogLevel    = "info"
	DefaultCORSOrigin  = "*"
	DefaultTestRatio   = 0.2
	DefaultSeed        = 42
	DefaultTrees       = 100
	DefaultMaxDepth    = 10
)

// Validation bounds
const (
	MinPort      = 1024
	MaxPort      = 65535
	MaxTrees     = 1000
	MaxTreeDepth = 100
)
