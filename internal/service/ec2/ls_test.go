package ec2

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssmrun/internal/service/runcmd"
)

type fakeEc2 struct {
	instances []types.Instance
	inputs    []*ec2.DescribeInstancesInput
	err       error
}

func (f *fakeEc2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	ids := map[string]bool{}
	for _, id := range in.InstanceIds {
		ids[id] = true
	}
	running := false
	for _, filter := range in.Filters {
		if aws.ToString(filter.Name) == "instance-state-name" {
			running = true
		}
	}

	var matched []types.Instance
	for _, ins := range f.instances {
		if len(ids) > 0 && !ids[aws.ToString(ins.InstanceId)] {
			continue
		}
		if running && ins.State.Name != types.InstanceStateNameRunning {
			continue
		}
		matched = append(matched, ins)
	}
	return &ec2.DescribeInstancesOutput{
		Reservations: []types.Reservation{{Instances: matched}},
	}, nil
}

type fakeCfn struct {
	ids []string
}

func (f *fakeCfn) ListStackResources(_ context.Context, _ *cloudformation.ListStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.ListStackResourcesOutput, error) {
	out := &cloudformation.ListStackResourcesOutput{}
	for _, id := range f.ids {
		out.StackResourceSummaries = append(out.StackResourceSummaries, cfntypes.StackResourceSummary{
			LogicalResourceId:  aws.String("Builder"),
			PhysicalResourceId: aws.String(id),
			ResourceType:       aws.String("AWS::EC2::Instance"),
			ResourceStatus:     cfntypes.ResourceStatusCreateComplete,
		})
	}
	return out, nil
}

func instance(id, name string, state types.InstanceStateName) types.Instance {
	ins := types.Instance{
		InstanceId: aws.String(id),
		State:      &types.InstanceState{Name: state},
	}
	if name != "" {
		ins.Tags = []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}}
	}
	return ins
}

func fleet() *fakeEc2 {
	return &fakeEc2{instances: []types.Instance{
		instance("i-01", "ue5-builder-1", types.InstanceStateNameRunning),
		instance("i-02", "ue5-builder-2", types.InstanceStateNameRunning),
		instance("i-03", "dcv-host", types.InstanceStateNameRunning),
		instance("i-04", "ue5-builder-old", types.InstanceStateNameStopped),
		instance("i-05", "ue5-builder-gone", types.InstanceStateNameTerminated),
		instance("i-06", "", types.InstanceStateNameStopped),
	}}
}

func ids(instances []Instance) []string {
	var out []string
	for _, ins := range instances {
		out = append(out, ins.InstanceId)
	}
	return out
}

func TestListInstances(t *testing.T) {
	ctx := context.Background()

	all, err := ListInstances(ctx, fleet(), ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"i-01", "i-02", "i-03", "i-04", "i-06"}, ids(all))
	assert.Equal(t, noName, all[4].InstanceName)

	glob, err := ListInstances(ctx, fleet(), ListOptions{NamePattern: "ue5-builder-*", RunningOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"i-01", "i-02"}, ids(glob))

	sub, err := ListInstances(ctx, fleet(), ListOptions{NamePattern: "dcv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i-03"}, ids(sub))
}

func TestDescribeInstance(t *testing.T) {
	ctx := context.Background()

	ins, err := DescribeInstance(ctx, fleet(), "i-02")
	require.NoError(t, err)
	assert.Equal(t, "ue5-builder-2", ins.InstanceName)

	_, err = DescribeInstance(ctx, fleet(), "i-99")
	assert.ErrorIs(t, err, runcmd.ErrTargetNotFound)

	notFound := &fakeEc2{err: &smithy.GenericAPIError{Code: "InvalidInstanceID.NotFound", Message: "not found"}}
	_, err = DescribeInstance(ctx, notFound, "i-99")
	assert.ErrorIs(t, err, runcmd.ErrTargetNotFound)

	_, err = DescribeInstance(ctx, &fakeEc2{err: errors.New("boom")}, "i-01")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, runcmd.ErrTargetNotFound)
}

func TestResolveTargets(t *testing.T) {
	ctx := context.Background()

	got, err := ResolveTargets(ctx, fleet(), &fakeCfn{ids: []string{"i-03", "i-01"}}, TargetQuery{
		InstanceIds: []string{"i-02", "i-09"},
		NamePattern: "ue5-builder-*",
		StackName:   "builders",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"i-02", "i-09", "i-01", "i-03"}, got)
}

func TestResolveTargets_NoMatch(t *testing.T) {
	ctx := context.Background()

	_, err := ResolveTargets(ctx, fleet(), &fakeCfn{}, TargetQuery{NamePattern: "nothing-*"})
	assert.ErrorContains(t, err, "nothing-*")

	_, err = ResolveTargets(ctx, fleet(), &fakeCfn{}, TargetQuery{StackName: "empty"})
	assert.Error(t, err)

	assert.True(t, TargetQuery{}.Empty())
	assert.False(t, TargetQuery{StackName: "s"}.Empty())
}

func TestListInstancesFromStack(t *testing.T) {
	got, err := ListInstancesFromStack(context.Background(), fleet(), &fakeCfn{ids: []string{"i-03"}}, "hosts")
	require.NoError(t, err)
	assert.Equal(t, []string{"i-03"}, ids(got))
}

func TestSelectInstanceInteractively(t *testing.T) {
	var out bytes.Buffer
	id, err := SelectInstanceInteractively(context.Background(), fleet(), strings.NewReader("2\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "i-02", id)
	assert.Contains(t, out.String(), "ue5-builder-2")

	_, err = SelectInstanceInteractively(context.Background(), fleet(), strings.NewReader("9\n"), &out)
	assert.ErrorContains(t, err, "1から3")

	_, err = SelectInstanceInteractively(context.Background(), fleet(), strings.NewReader("abc\n"), &out)
	assert.ErrorContains(t, err, "無効な番号")
}
