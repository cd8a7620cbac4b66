package runcmd

import (
	"context"
	"errors"
)

// Collector は終了した実行の出力を1回だけ取得する
type Collector struct {
	svc Service
}

// NewCollector はCollectorを作成する
func NewCollector(svc Service) *Collector {
	return &Collector{svc: svc}
}

// Collect は exec の targetID 分の標準出力・標準エラーを取得する。
// サーバー側で実行記録が失効している場合は *OutputUnavailableError を返す
func (c *Collector) Collect(ctx context.Context, exec Execution, targetID string) (Output, error) {
	out, err := c.svc.GetOutput(ctx, exec.CommandID, targetID)
	if err != nil {
		if errors.Is(err, ErrInvocationNotFound) {
			return Output{}, &OutputUnavailableError{CommandID: exec.CommandID, TargetID: targetID, Err: err}
		}
		return Output{}, err
	}
	return out, nil
}
