package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ssmrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func submitFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("submit", pflag.ContinueOnError)
	fs.String("region", "", "")
	fs.Duration("interval", 10*time.Second, "")
	fs.Duration("timeout", 600*time.Second, "")
	fs.Int("grace", 2, "")
	fs.Int("concurrency", 5, "")
	fs.String("output-bucket", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	s, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, s.PollInterval)
	assert.Equal(t, 600*time.Second, s.PollTimeout)
	assert.Equal(t, 2, s.PollGrace)
	assert.Equal(t, 5, s.Concurrency)
	assert.Equal(t, 0, s.Retries)
	assert.Empty(t, s.ConfigFile)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
region: ap-northeast-1
poll:
  interval: 5s
  timeout: 30m
  grace: 4
concurrency: 10
retries: 2
output:
  s3_bucket: build-logs
  log_group: /ssm/build
`)

	s, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "ap-northeast-1", s.Region)
	assert.Equal(t, 5*time.Second, s.PollInterval)
	assert.Equal(t, 30*time.Minute, s.PollTimeout)
	assert.Equal(t, 4, s.PollGrace)
	assert.Equal(t, 10, s.Concurrency)
	assert.Equal(t, 2, s.Retries)
	assert.Equal(t, "build-logs", s.OutputS3Bucket)
	assert.Equal(t, "/ssm/build", s.OutputLogGroup)
	assert.Equal(t, path, s.ConfigFile)
}

func TestLoad_FlagsWin(t *testing.T) {
	path := writeConfig(t, "concurrency: 10\npoll:\n  interval: 5s\noutput:\n  s3_bucket: from-file\n")
	t.Setenv("SSMRUN_OUTPUT_S3_BUCKET", "from-env")

	fs := submitFlags()
	require.NoError(t, fs.Parse([]string{"--concurrency", "3"}))

	s, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Concurrency)
	// 未指定のフラグは設定ファイルの値を上書きしない
	assert.Equal(t, 5*time.Second, s.PollInterval)
	assert.Equal(t, "from-env", s.OutputS3Bucket)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SSMRUN_POLL_TIMEOUT", "90s")
	t.Setenv("SSMRUN_REGION", "us-west-2")

	s, err := Load(writeConfig(t, "region: ap-northeast-1\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, s.PollTimeout)
	assert.Equal(t, "us-west-2", s.Region)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "concurrency: 0\n"), nil)
	assert.ErrorContains(t, err, "concurrency")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "poll: [\n"), nil)
	assert.Error(t, err)
}
