// gen-docs は ssmrun のコマンドリファレンスを docs/ にMarkdownで出力する。
//
//	go run ./scripts/gen-docs
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"ssmrun/cmd"
)

const docsDir = "./docs"

func main() {
	if err := os.RemoveAll(docsDir); err != nil {
		log.Fatalf("docsディレクトリの削除に失敗: %v", err)
	}
	if err := os.MkdirAll(docsDir, 0755); err != nil {
		log.Fatalf("docsディレクトリの作成に失敗: %v", err)
	}

	if err := writeCommandFile(cmd.RootCmd, filepath.Join(docsDir, "README.md"), false); err != nil {
		log.Fatalf("ルートコマンドのドキュメント生成に失敗: %v", err)
	}

	// submit / status のような単体コマンドも、document / target のようなグループも1ファイルずつ
	count := 1
	for _, group := range cmd.RootCmd.Commands() {
		if !group.IsAvailableCommand() || group.IsAdditionalHelpTopicCommand() {
			continue
		}
		filename := filepath.Join(docsDir, group.Name()+".md")
		if err := writeGroupFile(group, filename); err != nil {
			log.Printf("%s のドキュメント生成に失敗: %v", group.Name(), err)
			continue
		}
		count++
	}

	fmt.Printf("✅ %s にドキュメントを生成しました (%dファイル)\n", docsDir, count)
}

// writeGroupFile はコマンドとその子コマンドを1ファイルにまとめる
func writeGroupFile(group *cobra.Command, filename string) error {
	commands := []*cobra.Command{group}
	for _, child := range group.Commands() {
		if child.IsAvailableCommand() && !child.IsAdditionalHelpTopicCommand() {
			commands = append(commands, child)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", group.CommandPath())
	if len(commands) > 1 {
		for _, c := range commands {
			fmt.Fprintf(&b, "- [%s](#%s)\n", c.CommandPath(), strings.ReplaceAll(c.CommandPath(), " ", "-"))
		}
		b.WriteString("\n---\n\n")
	}

	for _, c := range commands {
		body, err := render(c, group.Name() == "version")
		if err != nil {
			return fmt.Errorf("%s: %w", c.CommandPath(), err)
		}
		b.WriteString(body)
		b.WriteString("\n---\n\n")
	}
	return os.WriteFile(filename, []byte(b.String()), 0644)
}

func writeCommandFile(c *cobra.Command, filename string, dropInherited bool) error {
	body, err := render(c, dropInherited)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(body), 0644)
}

func render(c *cobra.Command, dropInherited bool) (string, error) {
	buf := new(bytes.Buffer)
	if err := doc.GenMarkdownCustom(c, buf, linkFor); err != nil {
		return "", err
	}
	content := buf.String()
	if dropInherited {
		content = removeInheritedFlags(content)
	}
	return fixLinks(content), nil
}

// linkFor はコマンド名からリンク先を決める
// ssmrun → README, ssmrun_document → document, ssmrun_document_promote → document#ssmrun-document-promote
func linkFor(name string) string {
	name = strings.TrimSuffix(name, ".md")
	parts := strings.Split(name, "_")
	switch {
	case len(parts) == 1 && parts[0] == cmd.AppName:
		return "README.md"
	case len(parts) == 2:
		return parts[1] + ".md"
	case len(parts) > 2:
		return parts[1] + "#" + strings.ReplaceAll(name, "_", "-") + ".md"
	}
	return name + ".md"
}

var anchorLink = regexp.MustCompile(`\((\w+)#([\w-]+)\.md\)`)

// fixLinks は group#anchor.md を group.md#anchor に直す
func fixLinks(content string) string {
	return anchorLink.ReplaceAllString(content, "($1.md#$2)")
}

// removeInheritedFlags は「Options inherited from parent commands」の節を取り除く
func removeInheritedFlags(content string) string {
	var kept []string
	skipping := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "### Options inherited from parent commands") {
			skipping = true
			continue
		}
		if skipping && strings.HasPrefix(line, "#") {
			skipping = false
		}
		if !skipping {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
