package ssm

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ParseParams は "key=value" 形式の引数をドキュメントパラメータに変換する
func ParseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("パラメータは key=value 形式で指定してください: %q", pair)
		}
		if _, dup := params[key]; dup {
			return nil, fmt.Errorf("パラメータ %s が重複しています", key)
		}
		params[key] = value
	}
	return params, nil
}

// LoadParamsFile はJSONまたはCSVファイルからドキュメントパラメータを読み込む
func LoadParamsFile(filePath string) (map[string]string, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("ファイルが見つかりません: %s", filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".json":
		return loadParamsFromJSON(filePath)
	case ".csv":
		return loadParamsFromCSV(filePath)
	default:
		return nil, fmt.Errorf("サポートされていないファイル形式: %s", ext)
	}
}

// MergeParams はファイルのパラメータにコマンドライン指定を上書きで重ねる
func MergeParams(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// loadParamsFromJSON は {"parameters": {"key": "value"}} 形式を読み込む
func loadParamsFromJSON(filePath string) (map[string]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けません: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  ファイルのクローズに失敗: %v\n", err)
		}
	}()

	var paramFile parametersFile
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&paramFile); err != nil {
		return nil, fmt.Errorf("JSONの解析に失敗しました: %w", err)
	}

	for name := range paramFile.Parameters {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("パラメータ名が空です")
		}
	}
	if paramFile.Parameters == nil {
		paramFile.Parameters = map[string]string{}
	}
	return paramFile.Parameters, nil
}

// loadParamsFromCSV は name,value ヘッダー付きのCSVを読み込む
func loadParamsFromCSV(filePath string) (map[string]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けません: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  ファイルのクローズに失敗: %v\n", err)
		}
	}()

	reader := csv.NewReader(file)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("CSVヘッダーの読み込みに失敗しました: %w", err)
	}
	expectedHeaders := []string{"name", "value"}
	if len(headers) < len(expectedHeaders) {
		return nil, fmt.Errorf("CSVヘッダーが不正です。name, value が必要です")
	}
	for i, expected := range expectedHeaders {
		if strings.ToLower(strings.TrimSpace(headers[i])) != expected {
			return nil, fmt.Errorf("CSVヘッダーが不正です。期待: %s, 実際: %s", expected, headers[i])
		}
	}

	params := map[string]string{}
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV行 %d の読み込みに失敗しました: %w", lineNum+1, err)
		}
		lineNum++

		if len(record) < 2 {
			return nil, fmt.Errorf("CSV行 %d のカラム数が不足しています", lineNum)
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, fmt.Errorf("CSV行 %d のnameが空です", lineNum)
		}
		if _, dup := params[name]; dup {
			return nil, fmt.Errorf("CSV行 %d: パラメータ %s が重複しています", lineNum, name)
		}
		params[name] = strings.TrimSpace(record[1])
	}

	return params, nil
}
