// Package runcmd はリモートコマンドの送信・ポーリング・出力回収と
// コマンドドキュメントのバージョン管理を行う。
//
// 実行サービス自体は Service インターフェース越しに扱うため、SSM 以外の
// バックエンドやテスト用のフェイクに差し替えられる。
package runcmd

import "context"

// Service はリモート実行サービスの操作セット
type Service interface {
	// Submit はコマンドを送信して相関IDを返す
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	// GetStatus は1ターゲット分の実行状態を返す。未登録の場合は ErrInvocationNotFound
	GetStatus(ctx context.Context, commandID, targetID string) (Invocation, error)
	// GetOutput は終了した実行の出力を返す
	GetOutput(ctx context.Context, commandID, targetID string) (Output, error)
	// ListInvocations はコマンドに紐づく全ターゲットの実行状態を返す
	ListInvocations(ctx context.Context, commandID string) ([]Invocation, error)
	// Cancel はリモート側の実行を取り消す
	Cancel(ctx context.Context, commandID string, targetIDs []string) error

	DescribeDocument(ctx context.Context, name string) (Document, error)
	CreateDocument(ctx context.Context, name, content string, format DocumentFormat) (Document, error)
	UpdateDocument(ctx context.Context, name, content string, format DocumentFormat) (Document, error)
	SetDefaultVersion(ctx context.Context, name string, version int) error
	GetDocumentContent(ctx context.Context, name string, version int) (string, error)
	ListDocumentVersions(ctx context.Context, name string) ([]DocumentVersion, error)
	DeleteDocument(ctx context.Context, name string) error

	// DescribeTarget はインベントリからターゲットの死活を返す
	DescribeTarget(ctx context.Context, targetID string) (Target, error)
}
