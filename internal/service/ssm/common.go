package ssm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"

	"ssmrun/internal/service/runcmd"
)

// mapError はSSMのAPIエラーを runcmd のセンチネルエラーに対応付ける。
// 元のエラーも errors.As で取り出せるように両方をラップする
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.ErrorCode() {
	case "InvocationDoesNotExist":
		return fmt.Errorf("%w: %w", runcmd.ErrInvocationNotFound, err)
	case "InvalidDocument":
		return fmt.Errorf("%w: %w", runcmd.ErrDocumentNotFound, err)
	case "DuplicateDocumentContent":
		return fmt.Errorf("%w: %w", runcmd.ErrDuplicateContent, err)
	case "InvalidInstanceId":
		return fmt.Errorf("%w: %w", runcmd.ErrTargetNotFound, err)
	case "ThrottlingException", "TooManyUpdates", "RequestLimitExceeded":
		return fmt.Errorf("%w: %w", runcmd.ErrThrottled, err)
	default:
		return err
	}
}

// isObjectNotFound はS3オブジェクトが存在しないことを示すエラーかどうかを返す
func isObjectNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound":
		return true
	default:
		return false
	}
}

// statusFrom はSSMの実行ステータスを runcmd.Status に変換する
func statusFrom(s types.CommandInvocationStatus) runcmd.Status {
	switch s {
	case types.CommandInvocationStatusPending, types.CommandInvocationStatusDelayed:
		return runcmd.StatusPending
	case types.CommandInvocationStatusInProgress, types.CommandInvocationStatusCancelling:
		return runcmd.StatusInProgress
	case types.CommandInvocationStatusSuccess:
		return runcmd.StatusSuccess
	case types.CommandInvocationStatusCancelled:
		return runcmd.StatusCancelled
	case types.CommandInvocationStatusTimedOut:
		return runcmd.StatusTimedOut
	case types.CommandInvocationStatusFailed:
		return runcmd.StatusFailed
	default:
		return runcmd.StatusPending
	}
}

// livenessFrom はSSMエージェントのPingStatusを死活に変換する
func livenessFrom(s types.PingStatus) runcmd.Liveness {
	switch s {
	case types.PingStatusOnline:
		return runcmd.LivenessOnline
	case types.PingStatusConnectionLost, types.PingStatusInactive:
		return runcmd.LivenessOffline
	default:
		return runcmd.LivenessUnknown
	}
}

// parseVersion はSSMの文字列バージョンを数値にする。空や "$LATEST" は0
func parseVersion(v *string) int {
	if v == nil {
		return 0
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		return 0
	}
	return n
}

// versionParam は送信・取得時のバージョン指定。0はデフォルトバージョン
func versionParam(version int) string {
	if version <= 0 {
		return "$DEFAULT"
	}
	return strconv.Itoa(version)
}

func formatFrom(f types.DocumentFormat) runcmd.DocumentFormat {
	if f == types.DocumentFormatYaml {
		return runcmd.FormatYAML
	}
	return runcmd.FormatJSON
}

func formatTo(f runcmd.DocumentFormat) types.DocumentFormat {
	if f == runcmd.FormatYAML {
		return types.DocumentFormatYaml
	}
	return types.DocumentFormatJson
}

// truncateComment はSendCommandのコメント上限に収める
func truncateComment(comment string) string {
	runes := []rune(comment)
	if len(runes) <= maxCommentLength {
		return comment
	}
	return strings.TrimSpace(string(runes[:maxCommentLength]))
}
