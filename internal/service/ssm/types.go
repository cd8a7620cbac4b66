package ssm

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// API はバックエンドが使うSSMクライアントのメソッド（*ssm.Client が満たす）
type API interface {
	SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
	GetCommandInvocation(ctx context.Context, params *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error)
	ListCommandInvocations(ctx context.Context, params *ssm.ListCommandInvocationsInput, optFns ...func(*ssm.Options)) (*ssm.ListCommandInvocationsOutput, error)
	CancelCommand(ctx context.Context, params *ssm.CancelCommandInput, optFns ...func(*ssm.Options)) (*ssm.CancelCommandOutput, error)

	DescribeDocument(ctx context.Context, params *ssm.DescribeDocumentInput, optFns ...func(*ssm.Options)) (*ssm.DescribeDocumentOutput, error)
	CreateDocument(ctx context.Context, params *ssm.CreateDocumentInput, optFns ...func(*ssm.Options)) (*ssm.CreateDocumentOutput, error)
	UpdateDocument(ctx context.Context, params *ssm.UpdateDocumentInput, optFns ...func(*ssm.Options)) (*ssm.UpdateDocumentOutput, error)
	UpdateDocumentDefaultVersion(ctx context.Context, params *ssm.UpdateDocumentDefaultVersionInput, optFns ...func(*ssm.Options)) (*ssm.UpdateDocumentDefaultVersionOutput, error)
	GetDocument(ctx context.Context, params *ssm.GetDocumentInput, optFns ...func(*ssm.Options)) (*ssm.GetDocumentOutput, error)
	ListDocumentVersions(ctx context.Context, params *ssm.ListDocumentVersionsInput, optFns ...func(*ssm.Options)) (*ssm.ListDocumentVersionsOutput, error)
	DeleteDocument(ctx context.Context, params *ssm.DeleteDocumentInput, optFns ...func(*ssm.Options)) (*ssm.DeleteDocumentOutput, error)

	DescribeInstanceInformation(ctx context.Context, params *ssm.DescribeInstanceInformationInput, optFns ...func(*ssm.Options)) (*ssm.DescribeInstanceInformationOutput, error)
}

// ObjectReader はS3に出力された実行結果を読み出す
type ObjectReader interface {
	ReadURL(ctx context.Context, url string) (string, error)
}

// LogReader はCloudWatch Logsに出力された実行結果を読み出す
type LogReader interface {
	ReadCommandOutput(ctx context.Context, logGroup, commandID, instanceID string) (stdout, stderr string, err error)
}

// OutputOptions はコマンド出力の転送先
type OutputOptions struct {
	S3Bucket string
	S3Prefix string
	LogGroup string
}

// SessionOptions はSSMセッション開始のパラメータを格納する構造体
type SessionOptions struct {
	Region     string
	Profile    string
	InstanceId string
}

// parametersFile はJSONパラメータファイルの構造を表す
type parametersFile struct {
	Parameters map[string]string `json:"parameters"`
}

const (
	// GetCommandInvocation がインラインで返す出力の上限文字数
	inlineStdoutLimit = 24000
	inlineStderrLimit = 8000

	// SendCommand のコメント上限
	maxCommentLength = 100

	defaultDocumentWait     = 60 * time.Second
	defaultDocumentInterval = 2 * time.Second
)
