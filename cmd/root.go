package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ssmrun/internal/aws"
	"ssmrun/internal/config"
	"ssmrun/internal/logging"
	"ssmrun/internal/service/common"
)

// AppName はコマンド名。ヘルプの例示に使う
const AppName = "ssmrun"

var (
	region     string
	profile    string
	configFile string
	verbose    bool
)

var (
	// settings は設定ファイル・環境変数・フラグをまとめた値（PersistentPreRunEで確定）
	settings config.Settings
	awsCtx   *aws.Context
	logger   = zap.NewNop()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   AppName,
	Short: "SSM Run Commandで複数のEC2インスタンスにコマンドを実行するCLI",
	Long: `SSM Run Commandのドキュメントを複数のEC2インスタンスに送信し、
完了までポーリングして各ターゲットの結果と出力を集計します。

ドキュメントのバージョン管理（登録・デフォルト昇格・削除）と、
SSMに応答しないインスタンスの原因調査も行えます。`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := RootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&region, "region", "R", "", "AWSリージョン（省略時はAWS_REGIONまたは設定ファイル）")
	RootCmd.PersistentFlags().StringVarP(&profile, "profile", "P", "", "AWSプロファイル")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "設定ファイル（省略時は ./ssmrun.yaml または $HOME/ssmrun.yaml）")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "成功時もリモートの出力を表示し、デバッグログを出す")

	// コマンド実行前に共通で設定読み込みとプロファイルチェックを行う
	RootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// ヘルプ・バージョン表示の場合はスキップ
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		return loadSettings(cmd)
	}
}

// loadSettings は設定を確定し、ロガーとAWSコンテキストを準備する
func loadSettings(cmd *cobra.Command) error {
	cmd.SilenceUsage = true

	s, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	settings = s
	region = s.Region
	profile = s.Profile

	logger = logging.New(verbose)
	if s.ConfigFile != "" {
		logger.Debug("設定ファイルを読み込みました", zap.String("path", s.ConfigFile))
	}

	checkAndSetProfile(cmd)
	awsCtx = &aws.Context{Region: region, Profile: profile}
	return nil
}

// checkAndSetProfile はプロファイル未指定の場合に AWS_PROFILE を使う。
// どちらもなければSDKの既定の認証情報（インスタンスロール等）で続行する
func checkAndSetProfile(cmd *cobra.Command) {
	if profile != "" {
		return
	}
	envProfile := os.Getenv("AWS_PROFILE")
	if envProfile == "" {
		return
	}
	profile = envProfile
	cmd.PrintErrln(common.SearchIcon + " 環境変数 AWS_PROFILE の値 '" + profile + "' を使用します")
}
