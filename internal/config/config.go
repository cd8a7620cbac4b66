// Package config は ssmrun.yaml と SSMRUN_ 環境変数、コマンドラインフラグを
// 1つの設定値にまとめる。優先順位はフラグ、環境変数、設定ファイル、既定値の順
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings は実行時の設定値
type Settings struct {
	Region  string
	Profile string

	PollInterval time.Duration
	PollTimeout  time.Duration
	PollGrace    int

	Concurrency int
	Retries     int

	OutputS3Bucket string
	OutputS3Prefix string
	OutputLogGroup string

	// ConfigFile は読み込んだ設定ファイル。見つからなかった場合は空
	ConfigFile string
}

// 設定キーと対応するフラグ名
var flagBindings = map[string]string{
	"region":           "region",
	"profile":          "profile",
	"poll.interval":    "interval",
	"poll.timeout":     "timeout",
	"poll.grace":       "grace",
	"concurrency":      "concurrency",
	"retries":          "retries",
	"output.s3_bucket": "output-bucket",
	"output.s3_prefix": "output-prefix",
	"output.log_group": "log-group",
}

const (
	configName = "ssmrun"
	envPrefix  = "SSMRUN"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("poll.interval", 10*time.Second)
	v.SetDefault("poll.timeout", 600*time.Second)
	v.SetDefault("poll.grace", 2)
	v.SetDefault("concurrency", 5)
	v.SetDefault("retries", 0)
}

// Load は設定を読み込む。path が空の場合はカレントディレクトリとホームディレクトリの
// ssmrun.yaml を探し、見つからなければ既定値のみで続行する
func Load(path string, flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("設定ファイル %s の読み込みに失敗: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
			}
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Settings{}, fmt.Errorf("フラグ %s の設定に失敗: %w", name, err)
				}
			}
		}
	}

	s := Settings{
		Region:         v.GetString("region"),
		Profile:        v.GetString("profile"),
		PollInterval:   v.GetDuration("poll.interval"),
		PollTimeout:    v.GetDuration("poll.timeout"),
		PollGrace:      v.GetInt("poll.grace"),
		Concurrency:    v.GetInt("concurrency"),
		Retries:        v.GetInt("retries"),
		OutputS3Bucket: v.GetString("output.s3_bucket"),
		OutputS3Prefix: v.GetString("output.s3_prefix"),
		OutputLogGroup: v.GetString("output.log_group"),
		ConfigFile:     v.ConfigFileUsed(),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate は設定値の範囲を確認する
func (s Settings) Validate() error {
	switch {
	case s.PollInterval <= 0:
		return fmt.Errorf("poll.interval は正の値を指定してください: %s", s.PollInterval)
	case s.PollTimeout <= 0:
		return fmt.Errorf("poll.timeout は正の値を指定してください: %s", s.PollTimeout)
	case s.PollGrace < 0:
		return fmt.Errorf("poll.grace は0以上を指定してください: %d", s.PollGrace)
	case s.Concurrency < 1:
		return fmt.Errorf("concurrency は1以上を指定してください: %d", s.Concurrency)
	case s.Retries < 0:
		return fmt.Errorf("retries は0以上を指定してください: %d", s.Retries)
	}
	return nil
}
