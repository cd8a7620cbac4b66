package s3

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Reader はSSMの出力やドキュメント本文をS3から読み出す
type Reader struct {
	client GetObjectAPI
}

// NewReader はReaderを作成する
func NewReader(client GetObjectAPI) *Reader {
	return &Reader{client: client}
}

// ReadURL はSSMの StandardOutputUrl / StandardErrorUrl が指すオブジェクトを読み出す
func (r *Reader) ReadURL(ctx context.Context, rawURL string) (string, error) {
	loc, err := parseObjectURL(rawURL)
	if err != nil {
		return "", err
	}
	return r.Read(ctx, loc)
}

// ReadS3Path は s3://bucket/key 形式のオブジェクトを読み出す
func (r *Reader) ReadS3Path(ctx context.Context, s3url string) (string, error) {
	loc, err := parseS3Url(s3url)
	if err != nil {
		return "", err
	}
	return r.Read(ctx, loc)
}

// Read はオブジェクトの本文を文字列で返す
func (r *Reader) Read(ctx context.Context, loc ObjectLocation) (string, error) {
	resp, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return "", fmt.Errorf("%s の取得に失敗しました: %w", loc, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "⚠️  S3レスポンスボディのクローズに失敗: %v\n", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectSize+1))
	if err != nil {
		return "", fmt.Errorf("%s の読み込みに失敗しました: %w", loc, err)
	}
	if len(body) > maxObjectSize {
		return "", fmt.Errorf("%s が読み出し上限 (%d バイト) を超えています", loc, maxObjectSize)
	}
	return string(body), nil
}
