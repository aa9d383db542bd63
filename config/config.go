// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	// StorageBackend selects where recording history is persisted:
	// "file" (single JSON blob) or "sqlite".
	StorageBackend string `mapstructure:"storage_backend" validate:"required,oneof=file sqlite"`
	StoragePath    string `mapstructure:"storage_path" validate:"required"`

	// AudioDir is where captured audio files are written.
	AudioDir string `mapstructure:"audio_dir" validate:"required"`

	// Analysis endpoint: one POST per captured memo, no retry.
	AnalysisHost    string `mapstructure:"analysis_host" validate:"required,url"`
	AnalysisPath    string `mapstructure:"analysis_path" validate:"required"`
	AnalysisTimeout int    `mapstructure:"analysis_timeout" validate:"required,min=1"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env varaibles.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "voicememo")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")

	v.SetDefault("STORAGE_BACKEND", "file")
	v.SetDefault("STORAGE_PATH", "recordings.json")
	v.SetDefault("AUDIO_DIR", "audio")

	v.SetDefault("ANALYSIS_HOST", "http://localhost:9090")
	v.SetDefault("ANALYSIS_PATH", "/analyze-speech")
	v.SetDefault("ANALYSIS_TIMEOUT", 60)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
