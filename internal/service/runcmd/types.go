package runcmd

import (
	"strconv"
	"time"
)

// Status はリモート実行の状態
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusSuccess    Status = "Success"
	StatusFailed     Status = "Failed"
	StatusCancelled  Status = "Cancelled"
	StatusTimedOut   Status = "TimedOut"
)

// IsTerminal はこれ以上遷移しない状態かどうかを返す
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// Liveness はターゲットが実行サービスから到達可能かどうか
type Liveness string

const (
	LivenessUnknown Liveness = "Unknown"
	LivenessOnline  Liveness = "Online"
	LivenessOffline Liveness = "Offline"
)

// Target はコマンドを実行できる1台のインスタンス（読み取り専用）
type Target struct {
	ID           string
	Name         string
	Liveness     Liveness
	Platform     string
	AgentVersion string
	LastPing     time.Time
}

// DocumentFormat はドキュメント本文の形式
type DocumentFormat string

const (
	FormatJSON DocumentFormat = "JSON"
	FormatYAML DocumentFormat = "YAML"
)

// DocumentParameter はドキュメントが宣言するパラメータ
type DocumentParameter struct {
	Name         string
	Type         string
	Description  string
	DefaultValue string
}

// Document はバージョン管理されたコマンドドキュメントのメタ情報
type Document struct {
	Name           string
	LatestVersion  int
	DefaultVersion int
	Format         DocumentFormat
	Status         string
	CreatedAt      time.Time
	Parameters     []DocumentParameter
}

// DocumentVersion はドキュメントの1バージョン
type DocumentVersion struct {
	Version   int
	IsDefault bool
	CreatedAt time.Time
	Status    string
}

// DocumentRef は送信対象のドキュメント。Version が0の場合はデフォルトバージョンを使う
type DocumentRef struct {
	Name    string
	Version int
}

// VersionLabel は表示用のバージョン文字列
func (r DocumentRef) VersionLabel() string {
	if r.Version == 0 {
		return "default"
	}
	return strconv.Itoa(r.Version)
}

func (r DocumentRef) String() string {
	return r.Name + "@" + r.VersionLabel()
}

// Execution は1回のコマンド送信
type Execution struct {
	CommandID   string
	Document    DocumentRef
	Targets     []string
	SubmittedAt time.Time
	Status      Status
	Stdout      string
	Stderr      string
}

// Invocation はコマンドの1ターゲット分の実行状態
type Invocation struct {
	CommandID   string
	TargetID    string
	TargetName  string
	Status      Status
	Detail      string
	Stdout      string
	Stderr      string
	RequestedAt time.Time
}

// Output は終了した実行の標準出力・標準エラー
type Output struct {
	Stdout string
	Stderr string
	// Source は取得元（inline, s3, cloudwatch）
	Source string
}

// SubmitRequest はバックエンドへの送信内容
type SubmitRequest struct {
	Document DocumentRef
	Targets  []string
	Params   map[string]string
	Comment  string
}

// Job はドライバーが処理する1ターゲット分の作業
type Job struct {
	TargetID string
	Params   map[string]string
}

// Result はポーリング終了後の1ターゲット分の最終結果
type Result struct {
	TargetID          string
	CommandID         string
	Status            Status
	Stdout            string
	Stderr            string
	Err               error
	CancelledByCaller bool
	OutputUnavailable bool
	Attempts          int
	Duration          time.Duration
}

// Succeeded は成功として数えるかどうか
func (r Result) Succeeded() bool {
	return r.Err == nil && r.Status == StatusSuccess
}

// Report はオーケストレーション1回分の集計
type Report struct {
	RunID     string
	Document  DocumentRef
	Results   []Result
	Succeeded int
	Failed    int
}

// FailedTargets は失敗したターゲットIDを入力順で返す
func (r Report) FailedTargets() []string {
	var ids []string
	for _, res := range r.Results {
		if !res.Succeeded() {
			ids = append(ids, res.TargetID)
		}
	}
	return ids
}

// OK はすべてのターゲットが成功したかどうか
func (r Report) OK() bool {
	return r.Failed == 0
}
