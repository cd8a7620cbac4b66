package cfn

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// GetStackResources はスタックのリソース一覧を取得する。削除済みのリソースは除く
func GetStackResources(ctx context.Context, cfnClient API, stackName string) ([]StackResource, error) {
	paginator := cloudformation.NewListStackResourcesPaginator(cfnClient, &cloudformation.ListStackResourcesInput{
		StackName: awssdk.String(stackName),
	})

	var resources []StackResource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("CloudFormationスタックのリソース取得に失敗: %w", err)
		}
		for _, r := range page.StackResourceSummaries {
			if r.ResourceStatus == types.ResourceStatusDeleteComplete {
				continue
			}
			resources = append(resources, StackResource{
				LogicalId:    awssdk.ToString(r.LogicalResourceId),
				PhysicalId:   awssdk.ToString(r.PhysicalResourceId),
				ResourceType: awssdk.ToString(r.ResourceType),
				Status:       string(r.ResourceStatus),
			})
		}
	}

	if len(resources) == 0 {
		return nil, fmt.Errorf("スタック '%s' にリソースが見つかりませんでした", stackName)
	}
	return resources, nil
}

// GetAllEc2FromStack はスタックに含まれるすべてのEC2インスタンスIDを取得する
func GetAllEc2FromStack(ctx context.Context, cfnClient API, stackName string) ([]string, error) {
	resources, err := GetStackResources(ctx, cfnClient, stackName)
	if err != nil {
		return nil, err
	}

	var instanceIds []string
	for _, r := range resources {
		if r.ResourceType == ec2InstanceType && r.PhysicalId != "" {
			instanceIds = append(instanceIds, r.PhysicalId)
		}
	}
	return instanceIds, nil
}
