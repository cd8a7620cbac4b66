package common

// エラーメッセージの絵文字定数
const (
	ErrorIcon   = "❌"
	SuccessIcon = "✅"
	WarningIcon = "⚠️"
	SearchIcon  = "🔍"
	InfoIcon    = "📋"
	ProcessIcon = "🔄"
	PartyIcon   = "🎉"
	WaitIcon    = "⏳"
	StatsIcon   = "📊"
)

// エラーメッセージフォーマット定数
const (
	// 一覧取得エラー
	ListErrorFormat = "%s %s一覧の取得に失敗: %w"

	// リソース操作エラー
	DeleteErrorFormat  = "%s %s の削除に失敗: %w"
	SubmitErrorFormat  = "%s %s の送信に失敗: %w"
	CancelErrorFormat  = "%s %s の取り消しに失敗: %w"
	PromoteErrorFormat = "%s %s のデフォルト変更に失敗: %w"

	// その他の操作エラー
	UpdateErrorFormat = "%s %s の更新に失敗: %w"
	GetErrorFormat    = "%s %s の取得に失敗: %w"

	// 成功メッセージ
	DeleteSuccessFormat  = "%s %s を削除しました"
	CreateSuccessFormat  = "%s %s を作成しました"
	UpdateSuccessFormat  = "%s %s を更新しました"
	PromoteSuccessFormat = "%s %s のデフォルトを v%d に変更しました"
	CancelSuccessFormat  = "%s %s の取り消しを要求しました"

	// 処理中メッセージ
	ProcessingFormat = "%s %s を処理中..."
)
