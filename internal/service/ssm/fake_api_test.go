package ssm

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
)

// fakeAPI はテスト用のSSMクライアント。未設定のメソッドはエラーを返す
type fakeAPI struct {
	sendInputs []*ssm.SendCommandInput
	sendErr    error

	invocation    *ssm.GetCommandInvocationOutput
	invocationErr error

	listPages [][]types.CommandInvocation
	cancelled []*ssm.CancelCommandInput

	// describeStatuses は DescribeDocument がバージョン指定で呼ばれるたびに先頭から返すステータス
	document         *types.DocumentDescription
	describeStatuses []types.DocumentStatus
	describeErr      error
	createInputs     []*ssm.CreateDocumentInput
	updateInputs     []*ssm.UpdateDocumentInput
	updateErr        error
	defaultVersions  []string
	content          map[string]string
	versionPages     [][]types.DocumentVersionInfo
	deleted          []string

	instances []types.InstanceInformation
	infoErr   error
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

var errUnexpected = errors.New("unexpected call")

func (f *fakeAPI) SendCommand(_ context.Context, in *ssm.SendCommandInput, _ ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
	f.sendInputs = append(f.sendInputs, in)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &ssm.SendCommandOutput{Command: &types.Command{CommandId: aws.String("cmd-0001")}}, nil
}

func (f *fakeAPI) GetCommandInvocation(_ context.Context, _ *ssm.GetCommandInvocationInput, _ ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error) {
	if f.invocationErr != nil {
		return nil, f.invocationErr
	}
	if f.invocation == nil {
		return nil, errUnexpected
	}
	return f.invocation, nil
}

func (f *fakeAPI) ListCommandInvocations(_ context.Context, in *ssm.ListCommandInvocationsInput, _ ...func(*ssm.Options)) (*ssm.ListCommandInvocationsOutput, error) {
	idx := 0
	if in.NextToken != nil {
		idx = 1
	}
	out := &ssm.ListCommandInvocationsOutput{}
	if idx < len(f.listPages) {
		out.CommandInvocations = f.listPages[idx]
	}
	if idx+1 < len(f.listPages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeAPI) CancelCommand(_ context.Context, in *ssm.CancelCommandInput, _ ...func(*ssm.Options)) (*ssm.CancelCommandOutput, error) {
	f.cancelled = append(f.cancelled, in)
	return &ssm.CancelCommandOutput{}, nil
}

func (f *fakeAPI) DescribeDocument(_ context.Context, in *ssm.DescribeDocumentInput, _ ...func(*ssm.Options)) (*ssm.DescribeDocumentOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	if f.document == nil {
		return nil, apiError("InvalidDocument")
	}
	doc := *f.document
	if in.DocumentVersion != nil && len(f.describeStatuses) > 0 {
		doc.Status = f.describeStatuses[0]
		if len(f.describeStatuses) > 1 {
			f.describeStatuses = f.describeStatuses[1:]
		}
	}
	return &ssm.DescribeDocumentOutput{Document: &doc}, nil
}

func (f *fakeAPI) CreateDocument(_ context.Context, in *ssm.CreateDocumentInput, _ ...func(*ssm.Options)) (*ssm.CreateDocumentOutput, error) {
	f.createInputs = append(f.createInputs, in)
	f.document = &types.DocumentDescription{
		Name:            in.Name,
		DocumentFormat:  in.DocumentFormat,
		DocumentVersion: aws.String("1"),
		LatestVersion:   aws.String("1"),
		DefaultVersion:  aws.String("1"),
		Status:          types.DocumentStatusCreating,
	}
	return &ssm.CreateDocumentOutput{DocumentDescription: f.document}, nil
}

func (f *fakeAPI) UpdateDocument(_ context.Context, in *ssm.UpdateDocumentInput, _ ...func(*ssm.Options)) (*ssm.UpdateDocumentOutput, error) {
	f.updateInputs = append(f.updateInputs, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	desc := *f.document
	desc.DocumentVersion = aws.String("2")
	desc.Status = types.DocumentStatusUpdating
	f.document.LatestVersion = aws.String("2")
	return &ssm.UpdateDocumentOutput{DocumentDescription: &desc}, nil
}

func (f *fakeAPI) UpdateDocumentDefaultVersion(_ context.Context, in *ssm.UpdateDocumentDefaultVersionInput, _ ...func(*ssm.Options)) (*ssm.UpdateDocumentDefaultVersionOutput, error) {
	f.defaultVersions = append(f.defaultVersions, aws.ToString(in.DocumentVersion))
	return &ssm.UpdateDocumentDefaultVersionOutput{}, nil
}

func (f *fakeAPI) GetDocument(_ context.Context, in *ssm.GetDocumentInput, _ ...func(*ssm.Options)) (*ssm.GetDocumentOutput, error) {
	c, ok := f.content[aws.ToString(in.DocumentVersion)]
	if !ok {
		return nil, apiError("InvalidDocumentVersion")
	}
	return &ssm.GetDocumentOutput{Content: aws.String(c)}, nil
}

func (f *fakeAPI) ListDocumentVersions(_ context.Context, in *ssm.ListDocumentVersionsInput, _ ...func(*ssm.Options)) (*ssm.ListDocumentVersionsOutput, error) {
	idx := 0
	if in.NextToken != nil {
		idx = 1
	}
	out := &ssm.ListDocumentVersionsOutput{}
	if idx < len(f.versionPages) {
		out.DocumentVersions = f.versionPages[idx]
	}
	if idx+1 < len(f.versionPages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeAPI) DeleteDocument(_ context.Context, in *ssm.DeleteDocumentInput, _ ...func(*ssm.Options)) (*ssm.DeleteDocumentOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Name))
	return &ssm.DeleteDocumentOutput{}, nil
}

func (f *fakeAPI) DescribeInstanceInformation(_ context.Context, in *ssm.DescribeInstanceInformationInput, _ ...func(*ssm.Options)) (*ssm.DescribeInstanceInformationOutput, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	var wanted map[string]bool
	for _, filter := range in.Filters {
		if aws.ToString(filter.Key) == "InstanceIds" {
			wanted = map[string]bool{}
			for _, v := range filter.Values {
				wanted[v] = true
			}
		}
	}
	out := &ssm.DescribeInstanceInformationOutput{}
	for _, info := range f.instances {
		if wanted != nil && !wanted[aws.ToString(info.InstanceId)] {
			continue
		}
		out.InstanceInformationList = append(out.InstanceInformationList, info)
	}
	return out, nil
}

type fakeObjects struct {
	objects map[string]string
	errs    map[string]error
}

func (f *fakeObjects) ReadURL(_ context.Context, url string) (string, error) {
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	body, ok := f.objects[url]
	if !ok {
		return "", apiError("NoSuchKey")
	}
	return body, nil
}

type fakeLogs struct {
	stdout, stderr string
	err            error
	groups         []string
}

func (f *fakeLogs) ReadCommandOutput(_ context.Context, logGroup, _, _ string) (string, string, error) {
	f.groups = append(f.groups, logGroup)
	return f.stdout, f.stderr, f.err
}
