package runcmd

import (
	"errors"
	"fmt"
)

// バックエンドが返すセンチネルエラー
var (
	ErrInvocationNotFound = errors.New("コマンド実行が見つかりません")
	ErrDocumentNotFound   = errors.New("ドキュメントが見つかりません")
	ErrDuplicateContent   = errors.New("ドキュメントの内容が最新バージョンと同一です")
	ErrTargetNotFound     = errors.New("ターゲットが見つかりません")
	ErrThrottled          = errors.New("APIリクエストがスロットリングされました")
)

// SubmissionError はコマンド送信の失敗。自動ではリトライしない
type SubmissionError struct {
	Document DocumentRef
	Targets  []string
	Reason   string
	Err      error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("コマンド送信に失敗 (%s)", e.Document)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Retryable はスロットリングなど再送で回復しうる失敗かどうか
func (e *SubmissionError) Retryable() bool {
	return errors.Is(e.Err, ErrThrottled)
}

// NotFoundError は猶予期間を過ぎても実行が見つからない場合のエラー
type NotFoundError struct {
	CommandID string
	TargetID  string
	Polls     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("コマンド %s (%s) が %d 回のポーリング後も見つかりません", e.CommandID, e.TargetID, e.Polls)
}

func (e *NotFoundError) Unwrap() error { return ErrInvocationNotFound }

// OutputUnavailableError は出力がサーバー側で失効している場合のエラー（致命的ではない）
type OutputUnavailableError struct {
	CommandID string
	TargetID  string
	Err       error
}

func (e *OutputUnavailableError) Error() string {
	return fmt.Sprintf("コマンド %s (%s) の出力を取得できません: %v", e.CommandID, e.TargetID, e.Err)
}

func (e *OutputUnavailableError) Unwrap() error { return e.Err }

// TargetOfflineError は送信前の死活確認で到達不能だったターゲット
type TargetOfflineError struct {
	TargetID string
	Liveness Liveness
	Err      error
}

func (e *TargetOfflineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ターゲット %s の状態を確認できません: %v", e.TargetID, e.Err)
	}
	return fmt.Sprintf("ターゲット %s はオフラインです (%s)", e.TargetID, e.Liveness)
}

func (e *TargetOfflineError) Unwrap() error { return e.Err }

// ConfigError は全ターゲットに影響する設定誤り。送信前に実行全体を中断する
type ConfigError struct {
	Document DocumentRef
	Reason   string
	Err      error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("設定エラー (%s): %s", e.Document, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }
