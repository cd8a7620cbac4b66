package cfn

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// API はスタックリソースの取得に使うCloudFormationクライアントのメソッド
// （*cloudformation.Client が満たす）
type API interface {
	ListStackResources(ctx context.Context, params *cloudformation.ListStackResourcesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStackResourcesOutput, error)
}

// StackResource はスタックに含まれるリソースの識別子
type StackResource struct {
	LogicalId    string
	PhysicalId   string
	ResourceType string
	Status       string
}

const ec2InstanceType = "AWS::EC2::Instance"
