package ssm

import (
	"ssmrun/internal/cli"
)

// StartSession は指定したインスタンスにSSMセッションで接続する
func StartSession(opts SessionOptions) error {
	return cli.ExecuteAwsCommand(sessionArgs(opts))
}

// sessionArgs はAWS CLIの ssm start-session 引数を組み立てる
func sessionArgs(opts SessionOptions) []string {
	args := []string{
		"ssm", "start-session",
		"--target", opts.InstanceId,
	}
	if opts.Region != "" {
		args = append(args, "--region", opts.Region)
	}
	if opts.Profile != "" {
		args = append(args, "--profile", opts.Profile)
	}
	return args
}
