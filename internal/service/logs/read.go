package logs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// Reader はSSM Run CommandがCloudWatch Logsに書き出した出力を読み出す
type Reader struct {
	client API
}

// NewReader はReaderを作成する
func NewReader(client API) *Reader {
	return &Reader{client: client}
}

// ReadCommandOutput は <commandID>/<instanceID>/<plugin>/stdout|stderr の
// ログストリームをすべて読み出し、プラグイン名順に連結して返す
func (r *Reader) ReadCommandOutput(ctx context.Context, logGroup, commandID, instanceID string) (string, string, error) {
	streams, err := r.listStreams(ctx, logGroup, commandID+"/"+instanceID+"/")
	if err != nil {
		return "", "", err
	}
	if len(streams) == 0 {
		return "", "", fmt.Errorf("ロググループ %s にコマンド %s (%s) のログストリームがありません", logGroup, commandID, instanceID)
	}

	var stdout, stderr []string
	for _, stream := range streams {
		var dst *[]string
		switch {
		case strings.HasSuffix(stream, stdoutSuffix):
			dst = &stdout
		case strings.HasSuffix(stream, stderrSuffix):
			dst = &stderr
		default:
			continue
		}
		text, err := r.readStream(ctx, logGroup, stream)
		if err != nil {
			return "", "", err
		}
		*dst = append(*dst, text)
	}
	return strings.Join(stdout, "\n"), strings.Join(stderr, "\n"), nil
}

// listStreams はプレフィックスに一致するログストリーム名を名前順で返す
func (r *Reader) listStreams(ctx context.Context, logGroup, prefix string) ([]string, error) {
	var names []string
	var nextToken *string

	for {
		result, err := r.client.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
			LogGroupName:        aws.String(logGroup),
			LogStreamNamePrefix: aws.String(prefix),
			NextToken:           nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("ログストリーム一覧取得エラー: %w", err)
		}

		for _, s := range result.LogStreams {
			names = append(names, aws.ToString(s.LogStreamName))
		}

		if result.NextToken == nil {
			break
		}
		nextToken = result.NextToken
	}

	sort.Strings(names)
	return names, nil
}

// readStream はログストリームの全イベントを先頭から読み出す
func (r *Reader) readStream(ctx context.Context, logGroup, stream string) (string, error) {
	var lines []string
	var nextToken *string

	for {
		result, err := r.client.GetLogEvents(ctx, &cloudwatchlogs.GetLogEventsInput{
			LogGroupName:  aws.String(logGroup),
			LogStreamName: aws.String(stream),
			StartFromHead: aws.Bool(true),
			NextToken:     nextToken,
		})
		if err != nil {
			return "", fmt.Errorf("ログイベント取得エラー (%s): %w", stream, err)
		}

		for _, ev := range result.Events {
			lines = append(lines, aws.ToString(ev.Message))
		}

		// 末尾に達するとトークンが変わらなくなる
		if result.NextForwardToken == nil || (nextToken != nil && *result.NextForwardToken == *nextToken) {
			break
		}
		nextToken = result.NextForwardToken
	}

	return strings.Join(lines, "\n"), nil
}
