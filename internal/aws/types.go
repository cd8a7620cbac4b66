package aws

import "github.com/aws/aws-sdk-go-v2/aws"

// Context は認証情報の指定を保持する。
// 値が空の場合はAWS SDKの既定の解決順（環境変数、共有設定ファイル）に従う
type Context struct {
	Profile string
	Region  string
	config  *aws.Config // AWS設定のキャッシュ（非公開）
}

// String は表示用の "profile@region" 文字列
func (ctx Context) String() string {
	profile := ctx.Profile
	if profile == "" {
		profile = "default"
	}
	region := ctx.Region
	if ctx.config != nil && ctx.config.Region != "" {
		region = ctx.config.Region
	}
	if region == "" {
		return profile
	}
	return profile + "@" + region
}
