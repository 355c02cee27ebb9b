package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	DefaultAppName       = "textclf"
	DefaultConfigPath    = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultOutputDir     = "."
	DefaultRegistryPath  = filepath.Join(DefaultConfigPath, "registry.db")
	DefaultArchFile      = "model.json"
	DefaultWeightsFile   = "model.weights"
	DefaultVocabFile     = "vocabulary.tsv"
	DefaultPlotsDir      = "plots"
	DefaultFeaturePlot   = "feature_stats_sing_tweet_tknzr.png"
	DefaultTrainingPlot  = "training_stats.png"
	DefaultEncodingMode  = "tfidf"
	DefaultEncodingKind  = "matrix"
	DefaultShuffleSeed   = int64(137)
	DefaultTopFeatures   = 20
	DefaultMaxSeqLen     = 30
	DefaultRegistryDSN   = "file:" + DefaultRegistryPath
	DefaultDotEnvFile    = ".env"
	DefaultLogLevelField = "info"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// SetLogLevel adjusts the global zerolog level; unknown names leave it untouched.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
