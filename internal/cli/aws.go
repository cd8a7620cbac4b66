package cli

import (
	"fmt"
	"os"
	"os/exec"
)

// ExecuteAwsCommand はAWS CLIを対話モードで実行する。
// 標準入出力はそのまま端末に接続する
func ExecuteAwsCommand(args []string) error {
	path, err := exec.LookPath("aws")
	if err != nil {
		return fmt.Errorf("AWS CLIが見つかりません。セッション接続には aws と session-manager-plugin が必要です: %w", err)
	}

	cmd := exec.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
