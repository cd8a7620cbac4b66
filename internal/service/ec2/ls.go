package ec2

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"ssmrun/internal/service/cfn"
	"ssmrun/internal/service/common"
	"ssmrun/internal/service/runcmd"
)

// ListInstances は条件に一致するEC2インスタンス一覧を取得する。終了済みのものは除く
func ListInstances(ctx context.Context, ec2Client API, opts ListOptions) ([]Instance, error) {
	input := &ec2.DescribeInstancesInput{InstanceIds: opts.InstanceIds}
	if opts.RunningOnly {
		input.Filters = []types.Filter{
			{Name: aws.String("instance-state-name"), Values: []string{string(types.InstanceStateNameRunning)}},
		}
	}

	paginator := ec2.NewDescribeInstancesPaginator(ec2Client, input)

	var instances []Instance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(fmt.Errorf("EC2インスタンス一覧の取得に失敗: %w", err))
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				if instance.State != nil && instance.State.Name == types.InstanceStateNameTerminated {
					continue
				}
				ins := instanceFrom(instance)
				if !common.MatchPattern(ins.InstanceName, opts.NamePattern) {
					continue
				}
				instances = append(instances, ins)
			}
		}
	}

	return instances, nil
}

// DescribeInstance は1台のインスタンス情報を取得する。存在しない場合は runcmd.ErrTargetNotFound
func DescribeInstance(ctx context.Context, ec2Client API, instanceId string) (Instance, error) {
	instances, err := ListInstances(ctx, ec2Client, ListOptions{InstanceIds: []string{instanceId}})
	if err != nil {
		return Instance{}, err
	}
	if len(instances) == 0 {
		return Instance{}, fmt.Errorf("インスタンス %s: %w", instanceId, runcmd.ErrTargetNotFound)
	}
	return instances[0], nil
}

// ListInstancesFromStack はCloudFormationスタックに属するEC2インスタンス一覧を取得する
func ListInstancesFromStack(ctx context.Context, ec2Client API, cfnClient cfn.API, stackName string) ([]Instance, error) {
	ids, err := cfn.GetAllEc2FromStack(ctx, cfnClient, stackName)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Instance{}, nil
	}
	return ListInstances(ctx, ec2Client, ListOptions{InstanceIds: ids})
}

func instanceFrom(instance types.Instance) Instance {
	ins := Instance{
		InstanceId:   aws.ToString(instance.InstanceId),
		InstanceName: noName,
		Platform:     aws.ToString(instance.PlatformDetails),
		PrivateIp:    aws.ToString(instance.PrivateIpAddress),
	}
	if instance.State != nil {
		ins.State = string(instance.State.Name)
	}
	for _, tag := range instance.Tags {
		if aws.ToString(tag.Key) == "Name" && tag.Value != nil {
			ins.InstanceName = *tag.Value
			break
		}
	}
	if instance.IamInstanceProfile != nil {
		ins.InstanceProfileArn = aws.ToString(instance.IamInstanceProfile.Arn)
	}
	return ins
}

// mapError は存在しないインスタンスIDの指定を runcmd.ErrTargetNotFound に対応付ける
func mapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed":
			return fmt.Errorf("%w: %w", runcmd.ErrTargetNotFound, err)
		}
	}
	return err
}
