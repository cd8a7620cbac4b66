package logs

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLogs はストリームごとのイベントを1ページ pageSize 件で返す
type fakeLogs struct {
	streams  map[string][]string
	pageSize int
	err      error
}

func (f *fakeLogs) DescribeLogStreams(_ context.Context, in *cloudwatchlogs.DescribeLogStreamsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &cloudwatchlogs.DescribeLogStreamsOutput{}
	// ストリームを1件ずつページングして返す
	var matched []string
	for name := range f.streams {
		if strings.HasPrefix(name, aws.ToString(in.LogStreamNamePrefix)) {
			matched = append(matched, name)
		}
	}
	start := 0
	if in.NextToken != nil {
		start, _ = strconv.Atoi(*in.NextToken)
	}
	if start < len(matched) {
		out.LogStreams = []types.LogStream{{LogStreamName: aws.String(matched[start])}}
	}
	if start+1 < len(matched) {
		out.NextToken = aws.String(strconv.Itoa(start + 1))
	}
	return out, nil
}

func (f *fakeLogs) GetLogEvents(_ context.Context, in *cloudwatchlogs.GetLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error) {
	events := f.streams[aws.ToString(in.LogStreamName)]
	start := 0
	if in.NextToken != nil {
		start, _ = strconv.Atoi(*in.NextToken)
	}
	end := start + f.pageSize
	if end > len(events) {
		end = len(events)
	}
	out := &cloudwatchlogs.GetLogEventsOutput{NextForwardToken: aws.String(strconv.Itoa(end))}
	for _, msg := range events[start:end] {
		out.Events = append(out.Events, types.OutputLogEvent{Message: aws.String(msg)})
	}
	return out, nil
}

func TestReadCommandOutput(t *testing.T) {
	fake := &fakeLogs{
		pageSize: 2,
		streams: map[string][]string{
			"cmd-1/i-0abc/aws-runShellScript/stdout": {"line1", "line2", "line3"},
			"cmd-1/i-0abc/aws-runShellScript/stderr": {"warn"},
			"cmd-1/i-0def/aws-runShellScript/stdout": {"other instance"},
		},
	}
	r := NewReader(fake)

	stdout, stderr, err := r.ReadCommandOutput(context.Background(), "/ssm/build", "cmd-1", "i-0abc")
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\nline3", stdout)
	assert.Equal(t, "warn", stderr)
}

func TestReadCommandOutput_MultiplePlugins(t *testing.T) {
	fake := &fakeLogs{
		pageSize: 10,
		streams: map[string][]string{
			"cmd-1/i-0abc/b-step/stdout": {"second"},
			"cmd-1/i-0abc/a-step/stdout": {"first"},
		},
	}
	r := NewReader(fake)

	stdout, stderr, err := r.ReadCommandOutput(context.Background(), "/ssm/build", "cmd-1", "i-0abc")
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", stdout)
	assert.Empty(t, stderr)
}

func TestReadCommandOutput_NoStreams(t *testing.T) {
	r := NewReader(&fakeLogs{pageSize: 1, streams: map[string][]string{}})

	_, _, err := r.ReadCommandOutput(context.Background(), "/ssm/build", "cmd-1", "i-0abc")
	assert.ErrorContains(t, err, "ログストリームがありません")
}

func TestReadCommandOutput_APIError(t *testing.T) {
	r := NewReader(&fakeLogs{err: errors.New("AccessDenied")})

	_, _, err := r.ReadCommandOutput(context.Background(), "/ssm/build", "cmd-1", "i-0abc")
	assert.ErrorContains(t, err, "AccessDenied")
}
