package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ssmrun/internal/service/common"
	"ssmrun/internal/service/runcmd"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <command-id> [instance-id...]",
	Short: "実行中のコマンドをリモート側で取り消す",
	Long: `送信済みコマンドの取り消しをリクエストします。ターゲットを省略した場合は全ターゲットが対象です。
submit を Ctrl-C で中断してもリモートの実行は止まらないため、止めたい場合はこのコマンドを使います。

例:
  ` + AppName + ` cancel 0b2a4f4e-1c1d-4a8e-9a0e-2f7c4b1d9e11
  ` + AppName + ` cancel 0b2a4f4e-1c1d-4a8e-9a0e-2f7c4b1d9e11 i-0123456789abcdef0
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		commandID := args[0]
		targets := dedupe(args[1:])

		svc, err := connect.service()
		if err != nil {
			return err
		}

		if err := svc.Cancel(cmd.Context(), commandID, targets); err != nil {
			if errors.Is(err, runcmd.ErrInvocationNotFound) {
				return fmt.Errorf("%s コマンド %s が見つかりません: %w", common.ErrorIcon, commandID, err)
			}
			return fmt.Errorf(common.CancelErrorFormat, common.ErrorIcon, "コマンド "+commandID, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), common.CancelSuccessFormat+"\n", common.SuccessIcon, "コマンド "+commandID)
		if len(targets) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "   対象: %v\n", targets)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.AddCommand(cancelCmd)
}
