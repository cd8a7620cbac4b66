package runcmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"ssmrun/internal/service/common"
)

// PrintReport はターゲットごとの結果行と集計を書き出す。
// リモートの出力は失敗時または verbose の場合のみ表示し、失敗ターゲットは errOut に列挙する
func PrintReport(out, errOut io.Writer, report Report, verbose bool) {
	fmt.Fprintf(out, "\n=== 実行結果 (%s / run %s) ===\n", report.Document, report.RunID)

	for _, res := range report.Results {
		fmt.Fprintln(out, SummaryLine(res))
		if verbose || !res.Succeeded() {
			if body := common.Indent(res.Stdout, "    │ "); body != "" {
				fmt.Fprintln(out, "    stdout:")
				fmt.Fprintln(out, body)
			}
			if body := common.Indent(res.Stderr, "    │ "); body != "" {
				fmt.Fprintln(out, "    stderr:")
				fmt.Fprintln(out, body)
			}
		}
	}

	fmt.Fprintf(out, "\n%s 結果: 成功 %d / 失敗 %d / 合計 %d\n",
		common.StatsIcon, report.Succeeded, report.Failed, len(report.Results))

	if report.Failed > 0 {
		fmt.Fprintf(errOut, "%s 失敗したターゲット:\n", common.ErrorIcon)
		for _, res := range report.Results {
			if !res.Succeeded() {
				fmt.Fprintf(errOut, "  - %s: %s\n", res.TargetID, failureReason(res))
			}
		}
	}
}

// SummaryLine はターゲット1台分の結果を1行で返す
func SummaryLine(res Result) string {
	icon := common.SuccessIcon
	if !res.Succeeded() {
		icon = common.ErrorIcon
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s]", icon, res.TargetID, res.Status)
	if res.CommandID != "" {
		fmt.Fprintf(&b, " command=%s", res.CommandID)
	}
	fmt.Fprintf(&b, " (%s)", common.FormatDuration(res.Duration))
	if res.Attempts > 1 {
		fmt.Fprintf(&b, " 試行%d回", res.Attempts)
	}
	if !res.Succeeded() {
		fmt.Fprintf(&b, " - %s", failureReason(res))
	}
	if res.OutputUnavailable {
		fmt.Fprintf(&b, " %s 出力なし", common.WarningIcon)
	}
	return b.String()
}

func failureReason(res Result) string {
	var offline *TargetOfflineError
	var notFound *NotFoundError
	var subErr *SubmissionError
	switch {
	case res.CancelledByCaller:
		return "呼び出し側でキャンセルされました"
	case errors.As(res.Err, &offline):
		return "オフライン: " + offline.Error()
	case errors.As(res.Err, &notFound):
		return "実行が見つかりません: " + notFound.Error()
	case errors.As(res.Err, &subErr):
		return "送信失敗: " + subErr.Error()
	case res.Err != nil:
		return res.Err.Error()
	case res.Status == StatusTimedOut:
		return "待機上限に達しました（リモートでは実行中の可能性があります）"
	default:
		return "ステータス " + string(res.Status)
	}
}
