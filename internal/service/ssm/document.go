package ssm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"

	"ssmrun/internal/service/runcmd"
)

// DescribeDocument はドキュメントのメタ情報を取得する
func (b *Backend) DescribeDocument(ctx context.Context, name string) (runcmd.Document, error) {
	out, err := b.api.DescribeDocument(ctx, &ssm.DescribeDocumentInput{
		Name: aws.String(name),
	})
	if err != nil {
		return runcmd.Document{}, mapError(err)
	}
	if out.Document == nil {
		return runcmd.Document{}, fmt.Errorf("ドキュメント %s: %w", name, runcmd.ErrDocumentNotFound)
	}
	return documentFrom(out.Document), nil
}

// CreateDocument はCommandタイプのドキュメントを作成し、Activeになるまで待つ
func (b *Backend) CreateDocument(ctx context.Context, name, content string, format runcmd.DocumentFormat) (runcmd.Document, error) {
	out, err := b.api.CreateDocument(ctx, &ssm.CreateDocumentInput{
		Name:           aws.String(name),
		Content:        aws.String(content),
		DocumentType:   types.DocumentTypeCommand,
		DocumentFormat: formatTo(format),
	})
	if err != nil {
		return runcmd.Document{}, mapError(err)
	}
	if out.DocumentDescription == nil {
		return runcmd.Document{}, fmt.Errorf("CreateDocumentの応答にドキュメント情報が含まれていません")
	}

	doc := documentFrom(out.DocumentDescription)
	if doc.LatestVersion == 0 {
		doc.LatestVersion = parseVersion(out.DocumentDescription.DocumentVersion)
	}
	if err := b.waitForActive(ctx, name, doc.LatestVersion); err != nil {
		return runcmd.Document{}, err
	}
	return doc, nil
}

// UpdateDocument は新しいバージョンを追加する。デフォルトバージョンは変更しない
func (b *Backend) UpdateDocument(ctx context.Context, name, content string, format runcmd.DocumentFormat) (runcmd.Document, error) {
	out, err := b.api.UpdateDocument(ctx, &ssm.UpdateDocumentInput{
		Name:            aws.String(name),
		Content:         aws.String(content),
		DocumentVersion: aws.String("$LATEST"),
		DocumentFormat:  formatTo(format),
	})
	if err != nil {
		return runcmd.Document{}, mapError(err)
	}
	if out.DocumentDescription == nil {
		return runcmd.Document{}, fmt.Errorf("UpdateDocumentの応答にドキュメント情報が含まれていません")
	}

	// 採番はサービス側の応答を正とする
	doc := documentFrom(out.DocumentDescription)
	if v := parseVersion(out.DocumentDescription.DocumentVersion); v > doc.LatestVersion {
		doc.LatestVersion = v
	}
	if err := b.waitForActive(ctx, name, doc.LatestVersion); err != nil {
		return runcmd.Document{}, err
	}
	return doc, nil
}

// SetDefaultVersion はデフォルトバージョンを変更する
func (b *Backend) SetDefaultVersion(ctx context.Context, name string, version int) error {
	_, err := b.api.UpdateDocumentDefaultVersion(ctx, &ssm.UpdateDocumentDefaultVersionInput{
		Name:            aws.String(name),
		DocumentVersion: aws.String(strconv.Itoa(version)),
	})
	return mapError(err)
}

// GetDocumentContent は指定バージョンの本文を取得する。0はデフォルトバージョン
func (b *Backend) GetDocumentContent(ctx context.Context, name string, version int) (string, error) {
	out, err := b.api.GetDocument(ctx, &ssm.GetDocumentInput{
		Name:            aws.String(name),
		DocumentVersion: aws.String(versionParam(version)),
	})
	if err != nil {
		return "", mapError(err)
	}
	return aws.ToString(out.Content), nil
}

// ListDocumentVersions はドキュメントの全バージョンを取得する
func (b *Backend) ListDocumentVersions(ctx context.Context, name string) ([]runcmd.DocumentVersion, error) {
	paginator := ssm.NewListDocumentVersionsPaginator(b.api, &ssm.ListDocumentVersionsInput{
		Name: aws.String(name),
	})

	var versions []runcmd.DocumentVersion
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, v := range page.DocumentVersions {
			item := runcmd.DocumentVersion{
				Version:   parseVersion(v.DocumentVersion),
				IsDefault: v.IsDefaultVersion,
				Status:    string(v.Status),
			}
			if v.CreatedDate != nil {
				item.CreatedAt = *v.CreatedDate
			}
			versions = append(versions, item)
		}
	}
	return versions, nil
}

// DeleteDocument はドキュメントの全バージョンを削除する
func (b *Backend) DeleteDocument(ctx context.Context, name string) error {
	_, err := b.api.DeleteDocument(ctx, &ssm.DeleteDocumentInput{
		Name: aws.String(name),
	})
	return mapError(err)
}

// waitForActive は作成・更新したバージョンがActiveになるまで待つ
func (b *Backend) waitForActive(ctx context.Context, name string, version int) error {
	deadline := time.Now().Add(b.documentWait)
	for {
		out, err := b.api.DescribeDocument(ctx, &ssm.DescribeDocumentInput{
			Name:            aws.String(name),
			DocumentVersion: aws.String(versionParam(version)),
		})
		if err != nil {
			return mapError(err)
		}
		if out.Document == nil {
			return fmt.Errorf("ドキュメント %s: %w", name, runcmd.ErrDocumentNotFound)
		}

		switch out.Document.Status {
		case types.DocumentStatusActive:
			return nil
		case types.DocumentStatusFailed:
			return fmt.Errorf("ドキュメント %s v%d の登録に失敗しました: %s",
				name, version, aws.ToString(out.Document.StatusInformation))
		}

		b.logger.Debug("ドキュメントの有効化を待機中", zap.String("document", name),
			zap.Int("version", version), zap.String("status", string(out.Document.Status)))

		if !time.Now().Before(deadline) {
			return errors.New("ドキュメント " + name + " がActiveになりませんでした")
		}
		timer := time.NewTimer(b.documentInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func documentFrom(d *types.DocumentDescription) runcmd.Document {
	doc := runcmd.Document{
		Name:           aws.ToString(d.Name),
		LatestVersion:  parseVersion(d.LatestVersion),
		DefaultVersion: parseVersion(d.DefaultVersion),
		Format:         formatFrom(d.DocumentFormat),
		Status:         string(d.Status),
	}
	if d.CreatedDate != nil {
		doc.CreatedAt = *d.CreatedDate
	}
	for _, p := range d.Parameters {
		doc.Parameters = append(doc.Parameters, runcmd.DocumentParameter{
			Name:         aws.ToString(p.Name),
			Type:         string(p.Type),
			Description:  aws.ToString(p.Description),
			DefaultValue: aws.ToString(p.DefaultValue),
		})
	}
	return doc
}
