package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ssmrun/internal/service/common"
	"ssmrun/internal/service/runcmd"
)

var statusTarget string

var statusCmd = &cobra.Command{
	Use:   "status <command-id>",
	Short: "送信済みコマンドの実行状態を表示する",
	Long: `コマンドIDに紐づく各ターゲットの実行状態を表示します。
--target を指定した場合はそのターゲットの状態と出力を表示します。

例:
  ` + AppName + ` status 0b2a4f4e-1c1d-4a8e-9a0e-2f7c4b1d9e11
  ` + AppName + ` status 0b2a4f4e-1c1d-4a8e-9a0e-2f7c4b1d9e11 --target i-0123456789abcdef0
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		commandID := args[0]
		svc, err := connect.service()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if statusTarget != "" {
			inv, err := svc.GetStatus(ctx, commandID, statusTarget)
			if err != nil {
				return statusError(commandID, err)
			}
			printInvocation(out, inv)
			if !inv.Status.IsTerminal() {
				return nil
			}
			output, err := runcmd.NewCollector(svc).Collect(ctx, runcmd.Execution{CommandID: commandID}, statusTarget)
			if err != nil {
				var unavailable *runcmd.OutputUnavailableError
				if !errors.As(err, &unavailable) {
					return fmt.Errorf(common.GetErrorFormat, common.ErrorIcon, "出力", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", common.WarningIcon, err)
			} else {
				printOutput(out, output)
			}
			return failedInvocations(cmd.ErrOrStderr(), []runcmd.Invocation{inv})
		}

		invocations, err := svc.ListInvocations(ctx, commandID)
		if err != nil {
			return statusError(commandID, err)
		}
		common.DisplayList(out, invocations, "コマンド "+commandID, invocationsToTable,
			&common.DisplayOptions{ShowCount: true, EmptyMessage: "実行記録が見つかりませんでした"})

		if verbose {
			collector := runcmd.NewCollector(svc)
			for _, inv := range invocations {
				if !inv.Status.IsTerminal() {
					continue
				}
				output, err := collector.Collect(ctx, runcmd.Execution{CommandID: commandID}, inv.TargetID)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", common.WarningIcon, inv.TargetID, err)
					continue
				}
				fmt.Fprintf(out, "\n--- %s ---\n", inv.TargetID)
				printOutput(out, output)
			}
		}
		return failedInvocations(cmd.ErrOrStderr(), invocations)
	},
	SilenceUsage: true,
}

func statusError(commandID string, err error) error {
	if errors.Is(err, runcmd.ErrInvocationNotFound) {
		return fmt.Errorf("%s コマンド %s の実行記録が見つかりません（保持期間を過ぎた可能性があります）: %w",
			common.ErrorIcon, commandID, err)
	}
	return fmt.Errorf(common.GetErrorFormat, common.ErrorIcon, "コマンド "+commandID, err)
}

// failedInvocations は終了状態かつ Success 以外のターゲットを errOut に列挙し、1台でもあればエラーを返す。
// 実行中のターゲットは失敗として扱わない
func failedInvocations(errOut io.Writer, invocations []runcmd.Invocation) error {
	var failed []runcmd.Invocation
	for _, inv := range invocations {
		if inv.Status.IsTerminal() && inv.Status != runcmd.StatusSuccess {
			failed = append(failed, inv)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	fmt.Fprintf(errOut, "%s 失敗したターゲット:\n", common.ErrorIcon)
	for _, inv := range failed {
		reason := "ステータス " + string(inv.Status)
		if inv.Detail != "" && inv.Detail != string(inv.Status) {
			reason += " (" + inv.Detail + ")"
		}
		fmt.Fprintf(errOut, "  - %s: %s\n", inv.TargetID, reason)
	}
	return fmt.Errorf("❌ %d/%d 台のターゲットで失敗しました", len(failed), len(invocations))
}

func invocationsToTable(invocations []runcmd.Invocation) ([]common.TableColumn, [][]string) {
	columns := []common.TableColumn{
		{Header: "ターゲット"},
		{Header: "名前"},
		{Header: "状態"},
		{Header: "詳細"},
		{Header: "送信日時"},
	}
	data := make([][]string, len(invocations))
	for i, inv := range invocations {
		data[i] = []string{
			inv.TargetID,
			inv.TargetName,
			string(inv.Status),
			inv.Detail,
			common.FormatTime(inv.RequestedAt),
		}
	}
	return columns, data
}

func printInvocation(w io.Writer, inv runcmd.Invocation) {
	icon := common.WaitIcon
	switch {
	case inv.Status == runcmd.StatusSuccess:
		icon = common.SuccessIcon
	case inv.Status.IsTerminal():
		icon = common.ErrorIcon
	}
	fmt.Fprintf(w, "%s %s [%s]", icon, inv.TargetID, inv.Status)
	if inv.Detail != "" && inv.Detail != string(inv.Status) {
		fmt.Fprintf(w, " %s", inv.Detail)
	}
	fmt.Fprintln(w)
}

func printOutput(w io.Writer, output runcmd.Output) {
	if body := common.Indent(output.Stdout, "    │ "); body != "" {
		fmt.Fprintln(w, "    stdout:")
		fmt.Fprintln(w, body)
	}
	if body := common.Indent(output.Stderr, "    │ "); body != "" {
		fmt.Fprintln(w, "    stderr:")
		fmt.Fprintln(w, body)
	}
	if output.Source != "" {
		fmt.Fprintf(w, "    (出力元: %s)\n", output.Source)
	}
}

func init() {
	RootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusTarget, "target", "t", "", "状態と出力を表示するターゲットのインスタンスID")
}
