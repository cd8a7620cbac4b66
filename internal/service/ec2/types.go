package ec2

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// API はターゲット検出に使うEC2クライアントのメソッド（*ec2.Client が満たす）
type API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// Instance EC2インスタンスの情報を格納する構造体
type Instance struct {
	InstanceId         string
	InstanceName       string
	State              string
	Platform           string
	PrivateIp          string
	InstanceProfileArn string
}

// ListOptions はインスタンス一覧取得の条件
type ListOptions struct {
	// NamePattern はNameタグに対するパターン（glob または部分一致）
	NamePattern string
	// RunningOnly が true の場合は起動中のインスタンスのみ
	RunningOnly bool
	// InstanceIds を指定した場合はそのインスタンスのみ
	InstanceIds []string
}

const noName = "（名前なし）"
