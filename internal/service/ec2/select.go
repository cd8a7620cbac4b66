package ec2

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ssmrun/internal/service/common"
)

// SelectInstanceInteractively 起動中のEC2インスタンス一覧を表示してユーザーに選択させる
func SelectInstanceInteractively(ctx context.Context, ec2Client API, in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, "EC2インスタンス一覧を取得中...")

	instances, err := ListInstances(ctx, ec2Client, ListOptions{RunningOnly: true})
	if err != nil {
		return "", fmt.Errorf("❌ EC2インスタンス一覧の取得に失敗: %w", err)
	}
	if len(instances) == 0 {
		return "", fmt.Errorf("❌ 起動中のEC2インスタンスが見つかりません")
	}

	columns := []common.TableColumn{
		{Header: "番号"},
		{Header: "インスタンスID"},
		{Header: "インスタンス名"},
		{Header: "状態"},
	}
	data := make([][]string, len(instances))
	for i, instance := range instances {
		data[i] = []string{
			strconv.Itoa(i + 1),
			instance.InstanceId,
			instance.InstanceName,
			instance.State,
		}
	}
	common.WriteTable(out, "EC2インスタンス一覧", columns, data)

	fmt.Fprint(out, "\n接続するインスタンスの番号を入力してください: ")
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		return "", fmt.Errorf("❌ 入力の読み取りに失敗: %w", err)
	}

	input = strings.TrimSpace(input)
	selectedNum, err := strconv.Atoi(input)
	if err != nil {
		return "", fmt.Errorf("❌ 無効な番号です: %s", input)
	}
	if selectedNum < 1 || selectedNum > len(instances) {
		return "", fmt.Errorf("❌ 番号は1から%dの間で入力してください", len(instances))
	}

	selected := instances[selectedNum-1]
	fmt.Fprintf(out, "✅ 選択されたインスタンス: %s (%s)\n", selected.InstanceName, selected.InstanceId)
	return selected.InstanceId, nil
}
