package ssm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"

	"ssmrun/internal/service/runcmd"
)

// Submit はSendCommandでドキュメントを送信し、コマンドIDを返す
func (b *Backend) Submit(ctx context.Context, req runcmd.SubmitRequest) (string, error) {
	input := &ssm.SendCommandInput{
		DocumentName:    aws.String(req.Document.Name),
		DocumentVersion: aws.String(versionParam(req.Document.Version)),
		InstanceIds:     req.Targets,
		Parameters:      toSSMParameters(req.Params),
	}
	if req.Comment != "" {
		input.Comment = aws.String(truncateComment(req.Comment))
	}
	if b.output.S3Bucket != "" {
		input.OutputS3BucketName = aws.String(b.output.S3Bucket)
		if b.output.S3Prefix != "" {
			input.OutputS3KeyPrefix = aws.String(b.output.S3Prefix)
		}
	}
	if b.output.LogGroup != "" {
		input.CloudWatchOutputConfig = &types.CloudWatchOutputConfig{
			CloudWatchLogGroupName:  aws.String(b.output.LogGroup),
			CloudWatchOutputEnabled: true,
		}
	}

	out, err := b.api.SendCommand(ctx, input)
	if err != nil {
		return "", mapError(err)
	}
	if out.Command == nil || out.Command.CommandId == nil {
		return "", fmt.Errorf("SendCommandの応答にコマンドIDが含まれていません")
	}
	b.logger.Debug("SendCommand", zap.String("command_id", *out.Command.CommandId),
		zap.String("document", req.Document.String()), zap.Strings("targets", req.Targets))
	return *out.Command.CommandId, nil
}

// GetStatus はGetCommandInvocationで1インスタンス分の状態を取得する
func (b *Backend) GetStatus(ctx context.Context, commandID, targetID string) (runcmd.Invocation, error) {
	out, err := b.api.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(commandID),
		InstanceId: aws.String(targetID),
	})
	if err != nil {
		return runcmd.Invocation{}, mapError(err)
	}
	return runcmd.Invocation{
		CommandID: commandID,
		TargetID:  targetID,
		Status:    statusFrom(out.Status),
		Detail:    aws.ToString(out.StatusDetails),
		Stdout:    aws.ToString(out.StandardOutputContent),
		Stderr:    aws.ToString(out.StandardErrorContent),
	}, nil
}

// GetOutput は実行結果の出力を取得する。インライン出力が上限で切り詰められている場合は
// S3 または CloudWatch Logs から全文を読み出す
func (b *Backend) GetOutput(ctx context.Context, commandID, targetID string) (runcmd.Output, error) {
	out, err := b.api.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(commandID),
		InstanceId: aws.String(targetID),
	})
	if err != nil {
		return runcmd.Output{}, mapError(err)
	}

	result := runcmd.Output{
		Stdout: aws.ToString(out.StandardOutputContent),
		Stderr: aws.ToString(out.StandardErrorContent),
		Source: "inline",
	}
	if len(result.Stdout) < inlineStdoutLimit && len(result.Stderr) < inlineStderrLimit {
		return result, nil
	}

	log := b.logger.With(zap.String("command_id", commandID), zap.String("target", targetID))

	if b.objects != nil && aws.ToString(out.StandardOutputUrl) != "" {
		full, err := b.readS3Output(ctx, log, aws.ToString(out.StandardOutputUrl), aws.ToString(out.StandardErrorUrl))
		if err == nil {
			return full, nil
		}
		log.Warn("S3から出力全文を取得できませんでした", zap.Error(err))
	}

	if b.logs != nil && out.CloudWatchOutputConfig != nil && out.CloudWatchOutputConfig.CloudWatchOutputEnabled {
		group := aws.ToString(out.CloudWatchOutputConfig.CloudWatchLogGroupName)
		if group == "" {
			group = b.output.LogGroup
		}
		if group != "" {
			stdout, stderr, err := b.logs.ReadCommandOutput(ctx, group, commandID, targetID)
			if err == nil {
				return runcmd.Output{Stdout: stdout, Stderr: stderr, Source: "cloudwatch"}, nil
			}
			log.Warn("CloudWatch Logsから出力全文を取得できませんでした", zap.Error(err))
		}
	}

	result.Source = "inline (truncated)"
	return result, nil
}

func (b *Backend) readS3Output(ctx context.Context, log *zap.Logger, stdoutURL, stderrURL string) (runcmd.Output, error) {
	stdout, err := b.objects.ReadURL(ctx, stdoutURL)
	if err != nil {
		return runcmd.Output{}, err
	}
	var stderr string
	if stderrURL != "" {
		stderr, err = b.objects.ReadURL(ctx, stderrURL)
		// 標準エラーが空の場合はオブジェクト自体が作られない
		if err != nil && !isObjectNotFound(err) {
			log.Warn("S3から標準エラーを取得できませんでした", zap.String("url", stderrURL), zap.Error(err))
		}
	}
	return runcmd.Output{Stdout: stdout, Stderr: stderr, Source: "s3"}, nil
}

// ListInvocations はコマンドに紐づく全インスタンスの実行状態を取得する
func (b *Backend) ListInvocations(ctx context.Context, commandID string) ([]runcmd.Invocation, error) {
	paginator := ssm.NewListCommandInvocationsPaginator(b.api, &ssm.ListCommandInvocationsInput{
		CommandId: aws.String(commandID),
	})

	var invocations []runcmd.Invocation
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, inv := range page.CommandInvocations {
			item := runcmd.Invocation{
				CommandID:  aws.ToString(inv.CommandId),
				TargetID:   aws.ToString(inv.InstanceId),
				TargetName: aws.ToString(inv.InstanceName),
				Status:     statusFrom(inv.Status),
				Detail:     aws.ToString(inv.StatusDetails),
			}
			if inv.RequestedDateTime != nil {
				item.RequestedAt = *inv.RequestedDateTime
			}
			invocations = append(invocations, item)
		}
	}

	if len(invocations) == 0 {
		return nil, fmt.Errorf("コマンド %s: %w", commandID, runcmd.ErrInvocationNotFound)
	}
	return invocations, nil
}

// Cancel はCancelCommandでリモート側の実行を取り消す。targetIDs が空なら全インスタンス
func (b *Backend) Cancel(ctx context.Context, commandID string, targetIDs []string) error {
	_, err := b.api.CancelCommand(ctx, &ssm.CancelCommandInput{
		CommandId:   aws.String(commandID),
		InstanceIds: targetIDs,
	})
	return mapError(err)
}

// toSSMParameters は key=value のマップをSSMのパラメータ形式に変換する
func toSSMParameters(params map[string]string) map[string][]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string][]string, len(params))
	for k, v := range params {
		out[k] = []string{v}
	}
	return out
}
