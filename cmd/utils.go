package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ssmrun/internal/aws"
	cfnsvc "ssmrun/internal/service/cfn"
	ec2svc "ssmrun/internal/service/ec2"
	iamsvc "ssmrun/internal/service/iam"
	logssvc "ssmrun/internal/service/logs"
	"ssmrun/internal/service/runcmd"
	s3svc "ssmrun/internal/service/s3"
	ssmsvc "ssmrun/internal/service/ssm"
)

// providers は外部サービスへの接続を作る関数群。テストではフェイクに差し替える
type providers struct {
	service   func() (runcmd.Service, error)
	inventory func() (ec2svc.API, cfnsvc.API, error)
	iam       func() (iamsvc.API, error)
	objects   func() (*s3svc.Reader, error)
	session   func(opts ssmsvc.SessionOptions) error
}

var connect = defaultProviders()

var clients *aws.Clients

func defaultProviders() providers {
	return providers{
		service: func() (runcmd.Service, error) {
			c, err := awsClients()
			if err != nil {
				return nil, err
			}
			return ssmsvc.NewBackend(c.Ssm(),
				ssmsvc.WithOutput(ssmsvc.OutputOptions{
					S3Bucket: settings.OutputS3Bucket,
					S3Prefix: settings.OutputS3Prefix,
					LogGroup: settings.OutputLogGroup,
				}),
				ssmsvc.WithObjectReader(s3svc.NewReader(c.S3())),
				ssmsvc.WithLogReader(logssvc.NewReader(c.Logs())),
				ssmsvc.WithLogger(logger.Named("ssm")),
			), nil
		},
		inventory: func() (ec2svc.API, cfnsvc.API, error) {
			c, err := awsClients()
			if err != nil {
				return nil, nil, err
			}
			return c.Ec2(), c.Cfn(), nil
		},
		iam: func() (iamsvc.API, error) {
			c, err := awsClients()
			if err != nil {
				return nil, err
			}
			return c.Iam(), nil
		},
		objects: func() (*s3svc.Reader, error) {
			c, err := awsClients()
			if err != nil {
				return nil, err
			}
			return s3svc.NewReader(c.S3()), nil
		},
		session: ssmsvc.StartSession,
	}
}

// awsClients は遅延初期化でAWSクライアント群を取得
func awsClients() (*aws.Clients, error) {
	if clients != nil {
		return clients, nil
	}
	if awsCtx == nil {
		awsCtx = &aws.Context{Region: region, Profile: profile}
	}
	c, err := aws.NewAwsClients(awsCtx)
	if err != nil {
		return nil, fmt.Errorf("❌ AWS設定の読み込みに失敗: %w", err)
	}
	clients = c
	return clients, nil
}

// signalContext は Ctrl-C / SIGTERM でキャンセルされるコンテキストを返す
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// resolveTargets は引数、--name、--stack から送信先を決める
func resolveTargets(ctx context.Context, q ec2svc.TargetQuery) ([]string, error) {
	if q.NamePattern == "" && q.StackName == "" {
		return dedupe(q.InstanceIds), nil
	}
	ec2Client, cfnClient, err := connect.inventory()
	if err != nil {
		return nil, err
	}
	return ec2svc.ResolveTargets(ctx, ec2Client, cfnClient, q)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// confirm は y/N の確認を求める。y 以外はすべて拒否として扱う
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	cmd.Print(prompt)
	input, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && input == "" {
		cmd.PrintErrf("⚠️  入力エラー: %v\n", err)
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(input)) == "y", nil
}
