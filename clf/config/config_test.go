package config

import (
	"os"
	"path/filepath"
	"testing"

	internal "github.com/ZanzyTHEbar/textclf/clf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	tempDir, err := os.MkdirTemp("", "textclf-config-test-*")
	require.NoError(suite.T(), err)
	suite.tempDir = tempDir

	// Change to temp directory so no stray config.yaml is picked up
	err = os.Chdir(tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "train.tsv", cfg.Dataset.TrainPath)
	assert.Equal(suite.T(), "test.tsv", cfg.Dataset.TestPath)
	assert.False(suite.T(), cfg.Dataset.Shuffle)
	assert.Equal(suite.T(), internal.DefaultShuffleSeed, cfg.Dataset.Seed)
	assert.Equal(suite.T(), "matrix", cfg.Encoding.Kind)
	assert.Equal(suite.T(), "tfidf", cfg.Encoding.Mode)
	assert.Equal(suite.T(), 30, cfg.Encoding.MaxLen)
	assert.Equal(suite.T(), ".", cfg.Output.Dir)
	assert.Equal(suite.T(), 20, cfg.Plot.TopFeatures)
	assert.Equal(suite.T(), internal.DefaultRegistryDSN, cfg.Registry.DSN)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
dataset:
  trainPath: "data/train.tsv"
  testPath: "data/test.tsv"
  shuffle: true
  seed: 42
encoding:
  kind: "indexes"
  mode: "binary"
  maxLen: 50
output:
  dir: "./out"
  archFile: "arch.json"
  weightsFile: "weights.bin"
plot:
  topFeatures: 10
registry:
  dsn: "file:runs.db"
`

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(configContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "data/train.tsv", cfg.Dataset.TrainPath)
	assert.Equal(suite.T(), "data/test.tsv", cfg.Dataset.TestPath)
	assert.True(suite.T(), cfg.Dataset.Shuffle)
	assert.Equal(suite.T(), int64(42), cfg.Dataset.Seed)
	assert.Equal(suite.T(), "indexes", cfg.Encoding.Kind)
	assert.Equal(suite.T(), "binary", cfg.Encoding.Mode)
	assert.Equal(suite.T(), 50, cfg.Encoding.MaxLen)
	assert.Equal(suite.T(), 10, cfg.Plot.TopFeatures)
	assert.Equal(suite.T(), "file:runs.db", cfg.Registry.DSN)
	assert.Equal(suite.T(), filepath.Join("out", "arch.json"), cfg.ArchPath())
	assert.Equal(suite.T(), filepath.Join("out", "weights.bin"), cfg.WeightsPath())
}

func (suite *ConfigTestSuite) TestLoadConfigFromEnvironment() {
	suite.T().Setenv("ENCODING_MODE", "count")
	suite.T().Setenv("PLOT_TOPFEATURES", "7")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "count", cfg.Encoding.Mode)
	assert.Equal(suite.T(), 7, cfg.Plot.TopFeatures)
}

func (suite *ConfigTestSuite) TestLoadConfigFromDotEnv() {
	// godotenv never overrides variables that are already set, so clear it first.
	os.Unsetenv("DATASET_SEED")
	defer os.Unsetenv("DATASET_SEED")

	err := os.WriteFile(filepath.Join(suite.tempDir, ".env"), []byte("DATASET_SEED=99\n"), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(99), cfg.Dataset.Seed)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	malformedContent := `
dataset:
  trainPath: "train.tsv"
  invalid_yaml: [unclosed bracket
`

	configFile := filepath.Join(suite.tempDir, "malformed.yaml")
	err := os.WriteFile(configFile, []byte(malformedContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigRejectsUnknownMode() {
	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte("encoding:\n  mode: \"bm25\"\n"), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	assert.ErrorContains(suite.T(), err, "invalid configuration")
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestWordPieceRequiresVocab() {
	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte("encoding:\n  kind: \"wordpiece\"\n"), 0o644)
	require.NoError(suite.T(), err)

	_, err = LoadConfig(configFile)
	assert.Error(suite.T(), err)
}

func (suite *ConfigTestSuite) TestAppConfigGlobal() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), cfg.Dataset.TrainPath, AppConfig.Dataset.TrainPath)
	assert.Equal(suite.T(), cfg.Encoding.Mode, AppConfig.Encoding.Mode)
}

// BenchmarkLoadConfig benchmarks config loading performance
func BenchmarkLoadConfig(b *testing.B) {
	for i := 0; i < b.N; i++ {
		cfg, err := LoadConfig("")
		if err != nil {
			b.Fatal(err)
		}
		_ = cfg
	}
}
