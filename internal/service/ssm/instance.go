package ssm

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"ssmrun/internal/service/runcmd"
)

// DescribeTarget はSSMのインベントリからインスタンスの死活を取得する。
// SSMの管理対象になっていないインスタンスはオフラインとして返す
func (b *Backend) DescribeTarget(ctx context.Context, targetID string) (runcmd.Target, error) {
	out, err := b.api.DescribeInstanceInformation(ctx, &ssm.DescribeInstanceInformationInput{
		Filters: []types.InstanceInformationStringFilter{
			{Key: aws.String("InstanceIds"), Values: []string{targetID}},
		},
	})
	if err != nil {
		return runcmd.Target{}, mapError(err)
	}
	for _, info := range out.InstanceInformationList {
		if aws.ToString(info.InstanceId) == targetID {
			return targetFrom(info), nil
		}
	}
	return runcmd.Target{ID: targetID, Liveness: runcmd.LivenessOffline}, nil
}

// ListTargets はSSMに登録されている全インスタンスを取得する
func (b *Backend) ListTargets(ctx context.Context) ([]runcmd.Target, error) {
	paginator := ssm.NewDescribeInstanceInformationPaginator(b.api, &ssm.DescribeInstanceInformationInput{})

	var targets []runcmd.Target
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, info := range page.InstanceInformationList {
			targets = append(targets, targetFrom(info))
		}
	}
	return targets, nil
}

func targetFrom(info types.InstanceInformation) runcmd.Target {
	t := runcmd.Target{
		ID:           aws.ToString(info.InstanceId),
		Name:         aws.ToString(info.ComputerName),
		Liveness:     livenessFrom(info.PingStatus),
		Platform:     aws.ToString(info.PlatformName),
		AgentVersion: aws.ToString(info.AgentVersion),
	}
	if info.LastPingDateTime != nil {
		t.LastPing = *info.LastPingDateTime
	}
	return t
}
