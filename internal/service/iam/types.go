package iam

import (
	"context"

	sdkiam "github.com/aws/aws-sdk-go-v2/service/iam"

	"ssmrun/internal/service/runcmd"
)

// API は診断に使うIAMクライアントのメソッド（*iam.Client が満たす）
type API interface {
	GetInstanceProfile(ctx context.Context, params *sdkiam.GetInstanceProfileInput, optFns ...func(*sdkiam.Options)) (*sdkiam.GetInstanceProfileOutput, error)
	ListAttachedRolePolicies(ctx context.Context, params *sdkiam.ListAttachedRolePoliciesInput, optFns ...func(*sdkiam.Options)) (*sdkiam.ListAttachedRolePoliciesOutput, error)
}

// Diagnosis はSSMでコマンドを受け付けられない原因の調査結果
type Diagnosis struct {
	InstanceId      string
	InstanceName    string
	State           string
	Liveness        runcmd.Liveness
	AgentVersion    string
	InstanceProfile string
	Roles           []RoleItem
	Findings        []string
}

// Healthy は問題が見つからなかったかどうか
func (d Diagnosis) Healthy() bool {
	return len(d.Findings) == 0
}

// RoleItem はインスタンスプロファイルに含まれるロール
type RoleItem struct {
	Name             string
	Arn              string
	AttachedPolicies []string
	HasCorePolicy    bool
	Err              error
}

// CorePolicyName はSSMの管理対象になるためにロールへ必要なAWS管理ポリシー
const CorePolicyName = "AmazonSSMManagedInstanceCore"
