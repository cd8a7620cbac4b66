package s3

import (
	"fmt"
	"net/url"
	"strings"
)

// IsS3URL は s3:// 形式のパスかどうかを返す
func IsS3URL(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// parseS3Url は s3://bucket/key 形式を分解する
func parseS3Url(s3url string) (ObjectLocation, error) {
	if !IsS3URL(s3url) {
		return ObjectLocation{}, fmt.Errorf("⚠️ S3パスは s3:// で始めてください")
	}
	noPrefix := strings.TrimPrefix(s3url, "s3://")
	bucket, key, _ := strings.Cut(noPrefix, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return ObjectLocation{}, fmt.Errorf("⚠️ S3パスにはバケットとオブジェクトキーを指定してください: %s", s3url)
	}
	return ObjectLocation{Bucket: bucket, Key: key}, nil
}

// parseObjectURL はSSMが返す出力URLを分解する。
// パス形式 (https://s3.<region>.amazonaws.com/bucket/key)、
// 仮想ホスト形式 (https://bucket.s3.<region>.amazonaws.com/key)、s3:// 形式に対応する
func parseObjectURL(raw string) (ObjectLocation, error) {
	if IsS3URL(raw) {
		return parseS3Url(raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ObjectLocation{}, fmt.Errorf("S3 URLの解析に失敗しました: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return ObjectLocation{}, fmt.Errorf("サポートされていないURL形式: %s", raw)
	}

	host := u.Hostname()
	path := strings.TrimPrefix(u.Path, "/")

	var loc ObjectLocation
	switch {
	case strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-"):
		loc.Bucket, loc.Key, _ = strings.Cut(path, "/")
	case strings.Contains(host, ".s3.") || strings.Contains(host, ".s3-"):
		loc.Bucket = host[:strings.Index(host, ".s3")]
		loc.Key = path
	default:
		return ObjectLocation{}, fmt.Errorf("S3のURLではありません: %s", raw)
	}

	if loc.Bucket == "" || loc.Key == "" {
		return ObjectLocation{}, fmt.Errorf("S3 URLにバケットまたはキーが含まれていません: %s", raw)
	}
	return loc, nil
}
