package ec2

import (
	"context"
	"fmt"

	"ssmrun/internal/service/cfn"
)

// TargetQuery はコマンド送信先の指定方法をまとめたもの
type TargetQuery struct {
	InstanceIds []string
	NamePattern string
	StackName   string
}

// Empty は指定が1つもないかどうか
func (q TargetQuery) Empty() bool {
	return len(q.InstanceIds) == 0 && q.NamePattern == "" && q.StackName == ""
}

// ResolveTargets は引数のインスタンスID、Nameタグのパターン、スタック名から
// 送信先のインスタンスIDを集め、指定順に重複を除いて返す
func ResolveTargets(ctx context.Context, ec2Client API, cfnClient cfn.API, q TargetQuery) ([]string, error) {
	var ids []string
	seen := map[string]struct{}{}
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range q.InstanceIds {
		add(id)
	}

	if q.NamePattern != "" {
		instances, err := ListInstances(ctx, ec2Client, ListOptions{NamePattern: q.NamePattern, RunningOnly: true})
		if err != nil {
			return nil, err
		}
		if len(instances) == 0 {
			return nil, fmt.Errorf("Nameタグが '%s' に一致する起動中のインスタンスがありません", q.NamePattern)
		}
		for _, ins := range instances {
			add(ins.InstanceId)
		}
	}

	if q.StackName != "" {
		stackIds, err := cfn.GetAllEc2FromStack(ctx, cfnClient, q.StackName)
		if err != nil {
			return nil, err
		}
		if len(stackIds) == 0 {
			return nil, fmt.Errorf("スタック '%s' にEC2インスタンスが見つかりませんでした", q.StackName)
		}
		for _, id := range stackIds {
			add(id)
		}
	}

	return ids, nil
}
