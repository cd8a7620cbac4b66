package runcmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ApplyResult はドキュメント作成・更新の結果
type ApplyResult struct {
	Document Document
	// Created は新規作成（Absent → Active(v1)）だった場合にtrue
	Created bool
	// Unchanged は内容が最新バージョンと同一で新バージョンを作らなかった場合にtrue
	Unchanged bool
}

// DocumentManager はコマンドドキュメントのバージョンを管理する。
// バージョン番号は常にサービスの応答から読み取り、手元には保持しない
type DocumentManager struct {
	svc Service
}

// NewDocumentManager はDocumentManagerを作成する
func NewDocumentManager(svc Service) *DocumentManager {
	return &DocumentManager{svc: svc}
}

// Describe はドキュメントの存在を確認する。存在しない場合は found=false
func (m *DocumentManager) Describe(ctx context.Context, name string) (Document, bool, error) {
	doc, err := m.svc.DescribeDocument(ctx, name)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return Document{}, false, nil
		}
		return Document{}, false, fmt.Errorf("ドキュメント %s の取得に失敗: %w", name, err)
	}
	return doc, true, nil
}

// Apply は content を新しいバージョンとして登録する。存在しなければ作成する。
// 新しいバージョンはデフォルトに昇格しない
func (m *DocumentManager) Apply(ctx context.Context, name, content string, format DocumentFormat) (ApplyResult, error) {
	if name == "" {
		return ApplyResult{}, fmt.Errorf("ドキュメント名が空です")
	}
	if strings.TrimSpace(content) == "" {
		return ApplyResult{}, fmt.Errorf("ドキュメント %s の内容が空です", name)
	}

	current, found, err := m.Describe(ctx, name)
	if err != nil {
		return ApplyResult{}, err
	}

	if !found {
		doc, err := m.svc.CreateDocument(ctx, name, content, format)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("ドキュメント %s の作成に失敗: %w", name, err)
		}
		return ApplyResult{Document: doc, Created: true}, nil
	}

	doc, err := m.svc.UpdateDocument(ctx, name, content, format)
	if err != nil {
		if errors.Is(err, ErrDuplicateContent) {
			return ApplyResult{Document: current, Unchanged: true}, nil
		}
		return ApplyResult{}, fmt.Errorf("ドキュメント %s の更新に失敗: %w", name, err)
	}
	if doc.LatestVersion <= current.LatestVersion {
		return ApplyResult{}, fmt.Errorf("ドキュメント %s の新バージョン番号が不正です (最新: %d, 応答: %d)",
			name, current.LatestVersion, doc.LatestVersion)
	}
	return ApplyResult{Document: doc}, nil
}

// Promote は既存の version をデフォルトにする。内容は変更しない
func (m *DocumentManager) Promote(ctx context.Context, name string, version int) (Document, error) {
	doc, found, err := m.Describe(ctx, name)
	if err != nil {
		return Document{}, err
	}
	if !found {
		return Document{}, fmt.Errorf("ドキュメント %s: %w", name, ErrDocumentNotFound)
	}
	if version < 1 || version > doc.LatestVersion {
		return Document{}, fmt.Errorf("ドキュメント %s のバージョン %d は存在しません (1〜%d)", name, version, doc.LatestVersion)
	}
	if doc.DefaultVersion == version {
		return doc, nil
	}
	if err := m.svc.SetDefaultVersion(ctx, name, version); err != nil {
		return Document{}, fmt.Errorf("ドキュメント %s のデフォルトバージョン変更に失敗: %w", name, err)
	}
	doc.DefaultVersion = version
	return doc, nil
}

// Delete はドキュメントの全バージョンを削除する
func (m *DocumentManager) Delete(ctx context.Context, name string) error {
	_, found, err := m.Describe(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("ドキュメント %s: %w", name, ErrDocumentNotFound)
	}
	if err := m.svc.DeleteDocument(ctx, name); err != nil {
		return fmt.Errorf("ドキュメント %s の削除に失敗: %w", name, err)
	}
	return nil
}

// Content は指定バージョンの本文を返す。version が0の場合はデフォルトバージョン
func (m *DocumentManager) Content(ctx context.Context, name string, version int) (string, error) {
	content, err := m.svc.GetDocumentContent(ctx, name, version)
	if err != nil {
		return "", fmt.Errorf("ドキュメント %s の内容取得に失敗: %w", name, err)
	}
	return content, nil
}

// Versions はドキュメントの全バージョンを返す
func (m *DocumentManager) Versions(ctx context.Context, name string) ([]DocumentVersion, error) {
	versions, err := m.svc.ListDocumentVersions(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ドキュメント %s のバージョン一覧取得に失敗: %w", name, err)
	}
	return versions, nil
}

// FormatFromPath はファイル拡張子からドキュメント形式を決める
func FormatFromPath(path string) DocumentFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}
