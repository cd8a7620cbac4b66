package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"ssmrun/internal/service/common"
	"ssmrun/internal/service/runcmd"
	s3svc "ssmrun/internal/service/s3"
)

var (
	documentDeleteForce bool
	documentShowVersion int
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "コマンドドキュメントのバージョンを管理するコマンド群",
	Long: `SSMのCommandドキュメントを登録・更新し、デフォルトバージョンを切り替えます。
update で作られた新しいバージョンは自動ではデフォルトになりません。promote で明示的に昇格してください。`,
}

var documentUpdateCmd = &cobra.Command{
	Use:   "update <name> <content-path|s3://bucket/key>",
	Short: "ドキュメントを作成、または新しいバージョンを登録する",
	Long: `ローカルファイルまたはS3のオブジェクトの内容をドキュメントの新しいバージョンとして登録します。
ドキュメントが存在しない場合は作成します（バージョン1がデフォルトになります）。
内容が最新バージョンと同一の場合は新しいバージョンを作りません。
形式は拡張子から判定します（.yaml/.yml はYAML、それ以外はJSON）。

例:
  ` + AppName + ` document update InstallUE5 ./documents/install-ue5.yaml
  ` + AppName + ` document update InstallUE5 s3://build-assets/documents/install-ue5.json
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, source := args[0], args[1]
		ctx := cmd.Context()

		content, err := readDocumentSource(cmd, source)
		if err != nil {
			return fmt.Errorf(common.GetErrorFormat, common.ErrorIcon, source, err)
		}

		svc, err := connect.service()
		if err != nil {
			return err
		}

		cmd.Printf(common.ProcessingFormat+"\n", common.ProcessIcon, "ドキュメント "+name)
		res, err := runcmd.NewDocumentManager(svc).Apply(ctx, name, content, runcmd.FormatFromPath(source))
		if err != nil {
			return fmt.Errorf(common.UpdateErrorFormat, common.ErrorIcon, "ドキュメント "+name, err)
		}

		out := cmd.OutOrStdout()
		doc := res.Document
		switch {
		case res.Created:
			fmt.Fprintf(out, common.CreateSuccessFormat+" (v%d, デフォルト v%d)\n", common.SuccessIcon, "ドキュメント "+name, doc.LatestVersion, doc.DefaultVersion)
		case res.Unchanged:
			fmt.Fprintf(out, "%s ドキュメント %s は最新バージョン v%d と同じ内容のため更新しませんでした\n", common.InfoIcon, name, doc.LatestVersion)
		default:
			fmt.Fprintf(out, common.UpdateSuccessFormat+" (v%d, デフォルト v%d)\n", common.SuccessIcon, "ドキュメント "+name, doc.LatestVersion, doc.DefaultVersion)
			fmt.Fprintf(out, "   デフォルトにするには: %s document promote %s %d\n", AppName, name, doc.LatestVersion)
		}
		return nil
	},
	SilenceUsage: true,
}

var documentPromoteCmd = &cobra.Command{
	Use:   "promote <name> <version>",
	Short: "既存バージョンをデフォルトにする",
	Long: `指定したバージョンをドキュメントのデフォルトバージョンにします。内容は変更されません。

例:
  ` + AppName + ` document promote InstallUE5 3
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%s バージョンは数値で指定してください: %s", common.ErrorIcon, args[1])
		}

		svc, err := connect.service()
		if err != nil {
			return err
		}

		doc, err := runcmd.NewDocumentManager(svc).Promote(cmd.Context(), name, version)
		if err != nil {
			return fmt.Errorf(common.PromoteErrorFormat, common.ErrorIcon, "ドキュメント "+name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), common.PromoteSuccessFormat+"\n", common.SuccessIcon, "ドキュメント "+name, doc.DefaultVersion)
		return nil
	},
	SilenceUsage: true,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "ドキュメントを全バージョンごと削除する",
	Long: `ドキュメントの全バージョンを削除します。--force を指定しない場合は確認します。

例:
  ` + AppName + ` document delete InstallUE5
  ` + AppName + ` document delete InstallUE5 --force
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if !documentDeleteForce {
			ok, err := confirm(cmd, fmt.Sprintf("ドキュメント %s の全バージョンを削除します。本当に削除しますか？ [y/N]: ", name))
			if err != nil {
				return fmt.Errorf("%s 削除の確認を読み取れませんでした（--force で確認を省略できます）: %w", common.ErrorIcon, err)
			}
			if !ok {
				cmd.Println("削除をキャンセルしました。")
				return nil
			}
		}

		svc, err := connect.service()
		if err != nil {
			return err
		}

		if err := runcmd.NewDocumentManager(svc).Delete(cmd.Context(), name); err != nil {
			if errors.Is(err, runcmd.ErrDocumentNotFound) {
				return fmt.Errorf("%s ドキュメント %s が見つかりません", common.ErrorIcon, name)
			}
			return fmt.Errorf(common.DeleteErrorFormat, common.ErrorIcon, "ドキュメント "+name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), common.DeleteSuccessFormat+"\n", common.SuccessIcon, "ドキュメント "+name)
		return nil
	},
	SilenceUsage: true,
}

var documentShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "ドキュメントの情報と内容を表示する",
	Long: `ドキュメントのバージョン情報、パラメータ、内容を表示します。
--version を省略した場合はデフォルトバージョンの内容を表示します。

例:
  ` + AppName + ` document show InstallUE5
  ` + AppName + ` document show InstallUE5 --version 2
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		ctx := cmd.Context()

		svc, err := connect.service()
		if err != nil {
			return err
		}
		mgr := runcmd.NewDocumentManager(svc)

		doc, found, err := mgr.Describe(ctx, name)
		if err != nil {
			return fmt.Errorf(common.GetErrorFormat, common.ErrorIcon, "ドキュメント "+name, err)
		}
		if !found {
			return fmt.Errorf("%s ドキュメント %s が見つかりません", common.ErrorIcon, name)
		}
		if documentShowVersion < 0 || documentShowVersion > doc.LatestVersion {
			return fmt.Errorf("%s ドキュメント %s のバージョン %d は存在しません (1〜%d)",
				common.ErrorIcon, name, documentShowVersion, doc.LatestVersion)
		}

		content, err := mgr.Content(ctx, name, documentShowVersion)
		if err != nil {
			return fmt.Errorf(common.GetErrorFormat, common.ErrorIcon, "ドキュメント "+name, err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", common.InfoIcon, doc.Name)
		fmt.Fprintf(out, "  最新バージョン: v%d\n", doc.LatestVersion)
		fmt.Fprintf(out, "  デフォルト:     v%d\n", doc.DefaultVersion)
		fmt.Fprintf(out, "  形式:           %s\n", doc.Format)
		fmt.Fprintf(out, "  状態:           %s\n", doc.Status)
		fmt.Fprintf(out, "  作成日時:       %s\n", common.FormatTime(doc.CreatedAt))
		if len(doc.Parameters) > 0 {
			common.DisplayList(out, doc.Parameters, "パラメータ", parametersToTable, nil)
		}

		shown := documentShowVersion
		if shown == 0 {
			shown = doc.DefaultVersion
		}
		fmt.Fprintf(out, "\n--- v%d ---\n%s\n", shown, content)
		return nil
	},
	SilenceUsage: true,
}

var documentVersionsCmd = &cobra.Command{
	Use:   "versions <name>",
	Short: "ドキュメントのバージョン一覧を表示する",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		svc, err := connect.service()
		if err != nil {
			return err
		}

		versions, err := runcmd.NewDocumentManager(svc).Versions(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf(common.ListErrorFormat, common.ErrorIcon, "ドキュメント "+name+" のバージョン", err)
		}
		common.DisplayList(cmd.OutOrStdout(), versions, "ドキュメント "+name, versionsToTable,
			&common.DisplayOptions{ShowCount: true, EmptyMessage: "バージョンが見つかりませんでした"})
		return nil
	},
	SilenceUsage: true,
}

// readDocumentSource はローカルファイルまたは s3:// のオブジェクトを読み込む
func readDocumentSource(cmd *cobra.Command, source string) (string, error) {
	if s3svc.IsS3URL(source) {
		reader, err := connect.objects()
		if err != nil {
			return "", err
		}
		return reader.ReadS3Path(cmd.Context(), source)
	}
	body, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func versionsToTable(versions []runcmd.DocumentVersion) ([]common.TableColumn, [][]string) {
	columns := []common.TableColumn{
		{Header: "バージョン"},
		{Header: "デフォルト"},
		{Header: "状態"},
		{Header: "作成日時"},
	}
	data := make([][]string, len(versions))
	for i, v := range versions {
		def := ""
		if v.IsDefault {
			def = "*"
		}
		data[i] = []string{
			"v" + strconv.Itoa(v.Version),
			def,
			v.Status,
			common.FormatTime(v.CreatedAt),
		}
	}
	return columns, data
}

func parametersToTable(params []runcmd.DocumentParameter) ([]common.TableColumn, [][]string) {
	columns := []common.TableColumn{
		{Header: "名前"},
		{Header: "型"},
		{Header: "既定値"},
		{Header: "説明"},
	}
	data := make([][]string, len(params))
	for i, p := range params {
		data[i] = []string{p.Name, p.Type, p.DefaultValue, p.Description}
	}
	return columns, data
}

func init() {
	RootCmd.AddCommand(documentCmd)
	documentCmd.AddCommand(documentUpdateCmd)
	documentCmd.AddCommand(documentPromoteCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentVersionsCmd)

	documentDeleteCmd.Flags().BoolVarP(&documentDeleteForce, "force", "f", false, "確認プロンプトをスキップ")
	documentShowCmd.Flags().IntVar(&documentShowVersion, "version", 0, "表示するバージョン（省略時はデフォルトバージョン）")
}
