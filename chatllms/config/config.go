package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/chatllms-go/chatllms"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/collator"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/dataset"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/loader"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/tokenizer"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Data      dataset.DataArgs `mapstructure:"data"`
	Collator  collator.Config  `mapstructure:"collator"`
	Tokenizer tokenizer.Config `mapstructure:"tokenizer"`
	Loader    loader.Options   `mapstructure:"loader"`
	Store     StoreConfig      `mapstructure:"store"`
	Log       LogConfig        `mapstructure:"log"`
}

// StoreConfig stores the run database connection details.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// EnvPrefix is prepended to every environment override,
// e.g. CHATLLMS_COLLATOR_SOURCEMAXLEN.
var EnvPrefix = strings.ToUpper(internal.DefaultAppName)

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.datasetName", "alpaca")
	v.SetDefault("data.dataDir", internal.DefaultDataDir)
	v.SetDefault("data.doTrain", true)
	v.SetDefault("data.doEval", false)
	v.SetDefault("data.evalDatasetSize", 0.1)
	v.SetDefault("data.maxTrainSamples", 0)
	v.SetDefault("data.maxEvalSamples", 0)

	v.SetDefault("collator.sourceMaxLen", 1024)
	v.SetDefault("collator.targetMaxLen", 256)
	v.SetDefault("collator.trainOnSource", false)
	v.SetDefault("collator.predictWithGenerate", false)

	v.SetDefault("tokenizer.kind", "byte")
	v.SetDefault("tokenizer.path", "")

	v.SetDefault("loader.batchSize", 8)
	v.SetDefault("loader.shuffle", true)
	v.SetDefault("loader.seed", dataset.DefaultSplitSeed)
	v.SetDefault("loader.dropLast", false)
	v.SetDefault("loader.workers", 0)

	v.SetDefault("store.dsn", internal.DefaultStoreDSN)
	v.SetDefault("log.level", "info")
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
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

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// a missing file in the search path leaves the defaults in place
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	AppConfig = cfg
	return &cfg, nil
}
