package logs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// API はコマンド出力の読み出しに使うCloudWatch Logsクライアントのメソッド
// （*cloudwatchlogs.Client が満たす）
type API interface {
	DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	GetLogEvents(ctx context.Context, params *cloudwatchlogs.GetLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error)
}

// SSM Run Command が作るログストリーム名の末尾
const (
	stdoutSuffix = "/stdout"
	stderrSuffix = "/stderr"
)
