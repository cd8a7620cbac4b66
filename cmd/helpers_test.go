package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	sdkiam "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfnsvc "ssmrun/internal/service/cfn"
	ec2svc "ssmrun/internal/service/ec2"
	iamsvc "ssmrun/internal/service/iam"
	"ssmrun/internal/service/runcmd"
	"ssmrun/internal/service/runcmd/runcmdtest"
	s3svc "ssmrun/internal/service/s3"
	ssmsvc "ssmrun/internal/service/ssm"
)

// world はコマンドから見える外部サービス一式のフェイク
type world struct {
	svc      *runcmdtest.Service
	ec2      *fakeEc2
	cfn      *fakeCfn
	iam      *fakeIam
	objects  map[string]string
	sessions []ssmsvc.SessionOptions
}

func newWorld() *world {
	return &world{
		svc:     runcmdtest.New(),
		ec2:     &fakeEc2{},
		cfn:     &fakeCfn{},
		iam:     &fakeIam{profiles: map[string][]string{}, policies: map[string][]string{}},
		objects: map[string]string{},
	}
}

func (w *world) providers() providers {
	return providers{
		service: func() (runcmd.Service, error) { return w.svc, nil },
		inventory: func() (ec2svc.API, cfnsvc.API, error) {
			return w.ec2, w.cfn, nil
		},
		iam: func() (iamsvc.API, error) { return w.iam, nil },
		objects: func() (*s3svc.Reader, error) {
			return s3svc.NewReader(fakeS3(w.objects)), nil
		},
		session: func(opts ssmsvc.SessionOptions) error {
			w.sessions = append(w.sessions, opts)
			return nil
		},
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

// run は RootCmd を args で実行する。stdin には input を与える
func (w *world) run(t *testing.T, input string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AWS_PROFILE", "")

	orig := connect
	connect = w.providers()
	resetFlags(RootCmd)
	t.Cleanup(func() {
		connect = orig
		resetFlags(RootCmd)
		RootCmd.SetIn(nil)
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
	})

	var stdout, stderr bytes.Buffer
	RootCmd.SetIn(strings.NewReader(input))
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// resetFlags はフラグを既定値に戻す。cobraはExecute間でフラグの値を保持するため
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type fakeEc2 struct {
	instances []types.Instance
}

func (f *fakeEc2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	ids := map[string]bool{}
	for _, id := range in.InstanceIds {
		ids[id] = true
	}
	running := len(in.Filters) > 0

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
	return &ec2.DescribeInstancesOutput{Reservations: []types.Reservation{{Instances: matched}}}, nil
}

func instance(id, name string, state types.InstanceStateName, profileArn string) types.Instance {
	ins := types.Instance{
		InstanceId:       aws.String(id),
		State:            &types.InstanceState{Name: state},
		PrivateIpAddress: aws.String("10.0.0.1"),
		Tags:             []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
	}
	if profileArn != "" {
		ins.IamInstanceProfile = &types.IamInstanceProfile{Arn: aws.String(profileArn)}
	}
	return ins
}

type fakeCfn struct {
	stacks map[string][]string
}

func (f *fakeCfn) ListStackResources(_ context.Context, in *cloudformation.ListStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.ListStackResourcesOutput, error) {
	ids, ok := f.stacks[aws.ToString(in.StackName)]
	if !ok {
		return nil, errors.New("Stack does not exist")
	}
	out := &cloudformation.ListStackResourcesOutput{}
	for _, id := range ids {
		out.StackResourceSummaries = append(out.StackResourceSummaries, cfntypes.StackResourceSummary{
			LogicalResourceId:  aws.String("Builder"),
			PhysicalResourceId: aws.String(id),
			ResourceType:       aws.String("AWS::EC2::Instance"),
			ResourceStatus:     cfntypes.ResourceStatusCreateComplete,
		})
	}
	return out, nil
}

type fakeIam struct {
	profiles map[string][]string
	policies map[string][]string
}

func (f *fakeIam) GetInstanceProfile(_ context.Context, in *sdkiam.GetInstanceProfileInput, _ ...func(*sdkiam.Options)) (*sdkiam.GetInstanceProfileOutput, error) {
	roles, ok := f.profiles[aws.ToString(in.InstanceProfileName)]
	if !ok {
		return nil, errors.New("NoSuchEntity")
	}
	profile := &iamtypes.InstanceProfile{InstanceProfileName: in.InstanceProfileName}
	for _, r := range roles {
		profile.Roles = append(profile.Roles, iamtypes.Role{RoleName: aws.String(r)})
	}
	return &sdkiam.GetInstanceProfileOutput{InstanceProfile: profile}, nil
}

func (f *fakeIam) ListAttachedRolePolicies(_ context.Context, in *sdkiam.ListAttachedRolePoliciesInput, _ ...func(*sdkiam.Options)) (*sdkiam.ListAttachedRolePoliciesOutput, error) {
	out := &sdkiam.ListAttachedRolePoliciesOutput{}
	for _, p := range f.policies[aws.ToString(in.RoleName)] {
		out.AttachedPolicies = append(out.AttachedPolicies, iamtypes.AttachedPolicy{PolicyName: aws.String(p)})
	}
	return out, nil
}

// fakeS3 は s3://bucket/key をキーにした本文を返す
type fakeS3 map[string]string

func (f fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f["s3://"+aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}
