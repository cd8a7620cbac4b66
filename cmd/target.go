package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ssmrun/internal/service/common"
	ec2svc "ssmrun/internal/service/ec2"
	iamsvc "ssmrun/internal/service/iam"
	"ssmrun/internal/service/runcmd"
	ssmsvc "ssmrun/internal/service/ssm"
)

var (
	targetName       string
	targetStack      string
	targetInstanceId string
)

// targetLister はインベントリ全体を1回で取得できる実行サービス
type targetLister interface {
	ListTargets(ctx context.Context) ([]runcmd.Target, error)
}

// targetRow は target ls の1行
type targetRow struct {
	instance ec2svc.Instance
	target   runcmd.Target
}

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "コマンドの送信先インスタンスを調べるコマンド群",
}

var targetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "EC2インスタンスとSSMエージェントの状態を一覧表示する",
	Long: `EC2インスタンスの一覧に、SSMエージェントの死活（Online/Offline）を付けて表示します。

例:
  ` + AppName + ` target ls
  ` + AppName + ` target ls --name "ue5-builder-*"
  ` + AppName + ` target ls --stack ue5-builders
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ec2Client, cfnClient, err := connect.inventory()
		if err != nil {
			return err
		}

		var instances []ec2svc.Instance
		if targetStack != "" {
			instances, err = ec2svc.ListInstancesFromStack(ctx, ec2Client, cfnClient, targetStack)
		} else {
			instances, err = ec2svc.ListInstances(ctx, ec2Client, ec2svc.ListOptions{})
		}
		if err != nil {
			return fmt.Errorf(common.ListErrorFormat, common.ErrorIcon, "EC2インスタンス", err)
		}

		filtered := instances[:0]
		for _, ins := range instances {
			if common.MatchPattern(ins.InstanceName, targetName) {
				filtered = append(filtered, ins)
			}
		}
		instances = filtered

		svc, err := connect.service()
		if err != nil {
			return err
		}
		rows, err := withLiveness(ctx, svc, instances)
		if err != nil {
			return fmt.Errorf(common.ListErrorFormat, common.ErrorIcon, "SSMエージェントの状態", err)
		}

		common.DisplayList(cmd.OutOrStdout(), rows, "EC2インスタンス", targetsToTable,
			&common.DisplayOptions{ShowCount: true, EmptyMessage: "インスタンスが見つかりませんでした"})
		return nil
	},
	SilenceUsage: true,
}

var targetDiagnoseCmd = &cobra.Command{
	Use:   "diagnose <instance-id>",
	Short: "インスタンスがSSMのコマンドを受け付けられない原因を調べる",
	Long: `インスタンスの状態、インスタンスプロファイルのロールに AmazonSSMManagedInstanceCore が
アタッチされているか、SSMエージェントが応答しているかを確認します。
submit でターゲットがオフラインと判定された場合の調査に使います。

例:
  ` + AppName + ` target diagnose i-0123456789abcdef0
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceId := args[0]
		ctx := cmd.Context()

		ec2Client, _, err := connect.inventory()
		if err != nil {
			return err
		}
		ins, err := ec2svc.DescribeInstance(ctx, ec2Client, instanceId)
		if err != nil {
			if errors.Is(err, runcmd.ErrTargetNotFound) {
				return fmt.Errorf("%s インスタンス %s が見つかりません", common.ErrorIcon, instanceId)
			}
			return fmt.Errorf(common.GetErrorFormat, common.ErrorIcon, "インスタンス "+instanceId, err)
		}

		svc, err := connect.service()
		if err != nil {
			return err
		}
		target, err := svc.DescribeTarget(ctx, instanceId)
		if err != nil {
			return fmt.Errorf(common.GetErrorFormat, common.ErrorIcon, "SSMエージェントの状態", err)
		}

		iamClient, err := connect.iam()
		if err != nil {
			return err
		}
		d, err := iamsvc.Diagnose(ctx, iamClient, ins, target)
		if err != nil {
			return fmt.Errorf("%s 診断に失敗しました: %w", common.ErrorIcon, err)
		}
		iamsvc.PrintDiagnosis(cmd.OutOrStdout(), d)
		return nil
	},
	SilenceUsage: true,
}

var targetSessionCmd = &cobra.Command{
	Use:   "session",
	Short: "EC2インスタンスにSSMで接続する",
	Long: `指定したEC2インスタンスIDにSSMセッションで接続します。失敗したターゲットの調査に使います。
AWS CLIとSession Managerプラグインが必要です。

例:
  ` + AppName + ` target session -i <ec2-instance-id> [-P <aws-profile>]
  ` + AppName + ` target session [-P <aws-profile>]  # インスタンス一覧から選択
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceId := targetInstanceId
		if instanceId == "" {
			ec2Client, _, err := connect.inventory()
			if err != nil {
				return err
			}
			instanceId, err = ec2svc.SelectInstanceInteractively(cmd.Context(), ec2Client, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s に接続します...\n", common.ProcessIcon, instanceId)
		if err := connect.session(ssmsvc.SessionOptions{
			Region:     region,
			Profile:    profile,
			InstanceId: instanceId,
		}); err != nil {
			return fmt.Errorf("%s SSMセッションの開始に失敗しました: %w", common.ErrorIcon, err)
		}
		return nil
	},
	SilenceUsage: true,
}

// withLiveness は各インスタンスにSSMエージェントの死活を付ける
func withLiveness(ctx context.Context, svc runcmd.Service, instances []ec2svc.Instance) ([]targetRow, error) {
	rows := make([]targetRow, len(instances))
	for i, ins := range instances {
		rows[i] = targetRow{instance: ins, target: runcmd.Target{ID: ins.InstanceId, Liveness: runcmd.LivenessOffline}}
	}
	if len(instances) == 0 {
		return rows, nil
	}

	if lister, ok := svc.(targetLister); ok {
		targets, err := lister.ListTargets(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]runcmd.Target, len(targets))
		for _, t := range targets {
			byID[t.ID] = t
		}
		for i := range rows {
			if t, ok := byID[rows[i].instance.InstanceId]; ok {
				rows[i].target = t
			}
		}
		return rows, nil
	}

	for i := range rows {
		t, err := svc.DescribeTarget(ctx, rows[i].instance.InstanceId)
		if err != nil {
			return nil, err
		}
		rows[i].target = t
	}
	return rows, nil
}

func targetsToTable(rows []targetRow) ([]common.TableColumn, [][]string) {
	columns := []common.TableColumn{
		{Header: "インスタンスID"},
		{Header: "インスタンス名"},
		{Header: "状態"},
		{Header: "SSM"},
		{Header: "エージェント"},
		{Header: "プライベートIP"},
	}
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{
			r.instance.InstanceId,
			r.instance.InstanceName,
			r.instance.State,
			string(r.target.Liveness),
			r.target.AgentVersion,
			r.instance.PrivateIp,
		}
	}
	return columns, data
}

func init() {
	RootCmd.AddCommand(targetCmd)
	targetCmd.AddCommand(targetLsCmd)
	targetCmd.AddCommand(targetDiagnoseCmd)
	targetCmd.AddCommand(targetSessionCmd)

	targetLsCmd.Flags().StringVarP(&targetName, "name", "n", "", "Nameタグのパターン（glob または部分一致）")
	targetLsCmd.Flags().StringVarP(&targetStack, "stack", "S", "", "CloudFormationスタック名")
	targetSessionCmd.Flags().StringVarP(&targetInstanceId, "instance-id", "i", "", "EC2インスタンスID（省略時は一覧から選択）")
}
