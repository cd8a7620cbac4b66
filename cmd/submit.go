package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ssmrun/internal/service/common"
	ec2svc "ssmrun/internal/service/ec2"
	"ssmrun/internal/service/runcmd"
	ssmsvc "ssmrun/internal/service/ssm"
)

var (
	submitParams     []string
	submitParamFile  string
	submitVersion    int
	submitName       string
	submitStack      string
	submitTimeout    time.Duration
	submitInterval   time.Duration
	submitGrace      int
	submitConc       int
	submitRetries    int
	submitBucket     string
	submitPrefix     string
	submitLogGroup   string
	submitNoProgress bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <document> [instance-id...]",
	Short: "ドキュメントを複数のインスタンスに送信して完了まで待つ",
	Long: `SSM Run Commandのドキュメントを各ターゲットに送信し、完了までポーリングして結果を集計します。
1台の失敗は他のターゲットに影響しません。1台でも失敗した場合は終了コード1で終了し、
失敗したターゲットを標準エラーに表示します。

ターゲットはインスタンスIDの引数、--name（Nameタグのパターン）、--stack（CloudFormationスタック）で
指定でき、指定順に重複を除いてまとめられます。

例:
  ` + AppName + ` submit InstallUE5 i-0123456789abcdef0 i-0fedcba9876543210 --param Branch=main
  ` + AppName + ` submit InstallUE5 --name "ue5-builder-*" --version 3 --concurrency 10
  ` + AppName + ` submit InstallUE5 --stack ue5-builders --param-file params.json --timeout 2h
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := runcmd.DocumentRef{Name: args[0], Version: submitVersion}

		params, err := loadParams(submitParamFile, submitParams)
		if err != nil {
			return fmt.Errorf("❌ パラメータの読み込みに失敗しました: %w", err)
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		targets, err := resolveTargets(ctx, ec2svc.TargetQuery{
			InstanceIds: args[1:],
			NamePattern: submitName,
			StackName:   submitStack,
		})
		if err != nil {
			return fmt.Errorf("❌ ターゲットの解決に失敗しました: %w", err)
		}
		svc, err := connect.service()
		if err != nil {
			return err
		}

		jobs := make([]runcmd.Job, len(targets))
		for i, id := range targets {
			jobs[i] = runcmd.Job{TargetID: id, Params: params}
		}

		driver := runcmd.NewDriver(svc, runcmd.DriverOptions{
			Poll: runcmd.PollOptions{
				Interval: settings.PollInterval,
				Timeout:  settings.PollTimeout,
				Grace:    settings.PollGrace,
			},
			Concurrency: settings.Concurrency,
			MaxAttempts: settings.Retries + 1,
		}, logger.Named("driver"))

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "🚀 %s を %d 台に送信します (run %s, 最大%d並列)\n",
			ref, len(targets), driver.RunID(), settings.Concurrency)

		if !submitNoProgress {
			bar := newProgressBar(cmd, len(targets))
			driver.OnResult = func(runcmd.Result) { _ = bar.Add(1) }
			driver.SetPollHook(func(_, targetID string, inv runcmd.Invocation) {
				bar.Describe(fmt.Sprintf("実行中... %s %s", targetID, inv.Status))
			})
			defer func() { _ = bar.Finish() }()
		}

		report, err := driver.Run(ctx, ref, jobs)
		if err != nil {
			var cfgErr *runcmd.ConfigError
			if errors.As(err, &cfgErr) {
				return fmt.Errorf("❌ 実行を中止しました: %w", err)
			}
			return fmt.Errorf(common.SubmitErrorFormat, common.ErrorIcon, ref, err)
		}

		runcmd.PrintReport(out, cmd.ErrOrStderr(), report, verbose)

		if ctx.Err() != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s 中断しました。送信済みのコマンドはリモートで実行中の可能性があります（%s cancel で取り消せます）\n",
				common.WarningIcon, AppName)
		}
		if !report.OK() {
			return fmt.Errorf("❌ %d/%d 台のターゲットで失敗しました", report.Failed, len(report.Results))
		}
		fmt.Fprintf(out, "%s すべてのターゲットで成功しました\n", common.PartyIcon)
		return nil
	},
	SilenceUsage: true,
}

// loadParams は --param-file の内容に --param の指定を重ねる
func loadParams(file string, pairs []string) (map[string]string, error) {
	base := map[string]string{}
	if file != "" {
		loaded, err := ssmsvc.LoadParamsFile(file)
		if err != nil {
			return nil, err
		}
		base = loaded
	}
	flags, err := ssmsvc.ParseParams(pairs)
	if err != nil {
		return nil, err
	}
	return ssmsvc.MergeParams(base, flags), nil
}

func newProgressBar(cmd *cobra.Command, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("実行中..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}

func init() {
	RootCmd.AddCommand(submitCmd)

	f := submitCmd.Flags()
	f.StringArrayVarP(&submitParams, "param", "p", nil, "ドキュメントパラメータ key=value（複数指定可）")
	f.StringVar(&submitParamFile, "param-file", "", "パラメータファイル（.json または .csv）")
	f.IntVar(&submitVersion, "version", 0, "ドキュメントのバージョン（省略時はデフォルトバージョン）")
	f.StringVarP(&submitName, "name", "n", "", "Nameタグのパターンで起動中のインスタンスを選ぶ（例: ue5-builder-*）")
	f.StringVarP(&submitStack, "stack", "S", "", "CloudFormationスタックに含まれるインスタンスを選ぶ")
	f.DurationVar(&submitTimeout, "timeout", runcmd.DefaultPollTimeout, "ターゲットごとの待機上限")
	f.DurationVar(&submitInterval, "interval", runcmd.DefaultPollInterval, "ポーリング間隔")
	f.IntVar(&submitGrace, "grace", runcmd.DefaultNotFoundGrace, "送信直後に実行が見つからない場合に許容するポーリング回数")
	f.IntVar(&submitConc, "concurrency", runcmd.DefaultConcurrency, "同時に処理するターゲット数")
	f.IntVar(&submitRetries, "retries", 0, "スロットリング時に送信をやり直す回数")
	f.StringVar(&submitBucket, "output-bucket", "", "出力を保存するS3バケット")
	f.StringVar(&submitPrefix, "output-prefix", "", "出力を保存するS3キーのプレフィックス")
	f.StringVar(&submitLogGroup, "log-group", "", "出力を送るCloudWatch Logsのロググループ")
	f.BoolVar(&submitNoProgress, "no-progress", false, "プログレスバーを表示しない")
}
