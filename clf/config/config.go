package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/textclf/clf"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	LogLevel string         `mapstructure:"logLevel" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Encoding EncodingConfig `mapstructure:"encoding"`
	Output   OutputConfig   `mapstructure:"output"`
	Plot     PlotConfig     `mapstructure:"plot"`
	Registry RegistryConfig `mapstructure:"registry"`
}

// DatasetConfig locates the tab-separated train/test files.
type DatasetConfig struct {
	TrainPath string `mapstructure:"trainPath"`
	TestPath  string `mapstructure:"testPath"`
	Shuffle   bool   `mapstructure:"shuffle"`
	Seed      int64  `mapstructure:"seed"`
}

// EncodingConfig selects how texts become numbers.
type EncodingConfig struct {
	Kind           string `mapstructure:"kind" validate:"oneof=matrix indexes onehot wordpiece"`
	Mode           string `mapstructure:"mode" validate:"oneof=binary count freq tfidf tf-idf"`
	MaxLen         int    `mapstructure:"maxLen" validate:"min=1"`
	WordPieceVocab string `mapstructure:"wordPieceVocab" validate:"required_if=Kind wordpiece"`
}

// OutputConfig stores where model artifacts and plots go.
type OutputConfig struct {
	Dir         string `mapstructure:"dir" validate:"required"`
	ArchFile    string `mapstructure:"archFile" validate:"required"`
	WeightsFile string `mapstructure:"weightsFile" validate:"required"`
	// ONNXFile is an optional exported classifier scored with -tags onnx.
	ONNXFile string `mapstructure:"onnxFile"`
}

// PlotConfig stores plotting knobs.
type PlotConfig struct {
	TopFeatures int `mapstructure:"topFeatures" validate:"min=1"`
}

// RegistryConfig stores the run registry connection details.
type RegistryConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

var AppConfig Config

var validate = validator.New()

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	// Values from a local .env land in the process environment before viper reads it.
	if _, err := os.Stat(internal.DefaultDotEnvFile); err == nil {
		if err := godotenv.Load(internal.DefaultDotEnvFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", internal.DefaultDotEnvFile, err)
		}
	}

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("logLevel", internal.DefaultLogLevelField)
	v.SetDefault("dataset.trainPath", "train.tsv")
	v.SetDefault("dataset.testPath", "test.tsv")
	v.SetDefault("dataset.shuffle", false)
	v.SetDefault("dataset.seed", internal.DefaultShuffleSeed)
	v.SetDefault("encoding.kind", internal.DefaultEncodingKind)
	v.SetDefault("encoding.mode", internal.DefaultEncodingMode)
	v.SetDefault("encoding.maxLen", internal.DefaultMaxSeqLen)
	v.SetDefault("encoding.wordPieceVocab", "")
	v.SetDefault("output.dir", internal.DefaultOutputDir)
	v.SetDefault("output.archFile", internal.DefaultArchFile)
	v.SetDefault("output.weightsFile", internal.DefaultWeightsFile)
	v.SetDefault("output.onnxFile", "")
	v.SetDefault("plot.topFeatures", internal.DefaultTopFeatures)
	v.SetDefault("registry.dsn", internal.DefaultRegistryDSN)

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // dataset.trainPath becomes DATASET_TRAINPATH

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	internal.SetLogLevel(cfg.LogLevel)
	AppConfig = cfg

	return &AppConfig, nil
}

// ArchPath is the architecture file inside the output directory.
func (c *Config) ArchPath() string {
	return filepath.Join(c.Output.Dir, c.Output.ArchFile)
}

// WeightsPath is the weights file inside the output directory.
func (c *Config) WeightsPath() string {
	return filepath.Join(c.Output.Dir, c.Output.WeightsFile)
}

// ONNXPath is the exported classifier inside the output directory, empty
// when none is configured.
func (c *Config) ONNXPath() string {
	if c.Output.ONNXFile == "" {
		return ""
	}
	return filepath.Join(c.Output.Dir, c.Output.ONNXFile)
}
