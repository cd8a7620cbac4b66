package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// GetObjectAPI はオブジェクト読み出しに使うS3クライアントのメソッド（*s3.Client が満たす）
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ObjectLocation はバケットとキーの組
type ObjectLocation struct {
	Bucket string
	Key    string
}

func (l ObjectLocation) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// 1オブジェクトあたりの読み出し上限（バイト）
const maxObjectSize = 16 << 20
