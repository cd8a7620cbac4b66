package runcmd

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval  = 10 * time.Second
	DefaultPollTimeout   = 600 * time.Second
	DefaultNotFoundGrace = 2
)

// PollOptions はポーリングの間隔・上限・猶予回数
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	// Grace は送信直後の「見つからない」応答をPending扱いにする回数
	Grace int
}

// DefaultPollOptions は既定のポーリング設定を返す
func DefaultPollOptions() PollOptions {
	return PollOptions{
		Interval: DefaultPollInterval,
		Timeout:  DefaultPollTimeout,
		Grace:    DefaultNotFoundGrace,
	}
}

func (o PollOptions) normalized() PollOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultPollTimeout
	}
	if o.Grace < 0 {
		o.Grace = 0
	}
	return o
}

// PollResult はポーリング終了時の状態
type PollResult struct {
	Status Status
	Detail string
	Stdout string
	Stderr string
	// TimedOut はリモートの終了ではなく待機上限で打ち切った場合にtrue
	TimedOut bool
	// CancelledByCaller は呼び出し側のキャンセルで打ち切った場合にtrue
	CancelledByCaller bool
	Polls             int
}

// PollHook はステータスを1回読むごとに呼ばれる
type PollHook func(commandID, targetID string, inv Invocation)

// Poller は終了状態かタイムアウトまで実行状態を問い合わせる
type Poller struct {
	svc    Service
	opts   PollOptions
	logger *zap.Logger
	OnPoll PollHook
}

// NewPoller はPollerを作成する。logger がnilの場合はログを出さない
func NewPoller(svc Service, opts PollOptions, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{svc: svc, opts: opts.normalized(), logger: logger}
}

// Options は正規化済みの設定を返す
func (p *Poller) Options() PollOptions {
	return p.opts
}

// Poll は commandID/targetID の実行が終了状態になるまで一定間隔で問い合わせる。
// タイムアウトは StatusTimedOut、呼び出し側のキャンセルは StatusCancelled として
// エラーなしで返す。リモート側の実行は取り消さない
func (p *Poller) Poll(ctx context.Context, commandID, targetID string) (PollResult, error) {
	res := PollResult{Status: StatusPending}
	if ctx.Err() != nil {
		return cancelledResult(res), nil
	}

	deadline := time.Now().Add(p.opts.Timeout)
	log := p.logger.With(zap.String("command_id", commandID), zap.String("target", targetID))

	seen := false
	notFound := 0
	for {
		res.Polls++
		inv, err := p.svc.GetStatus(ctx, commandID, targetID)
		switch {
		case err == nil:
			seen = true
			notFound = 0
			res.Status = inv.Status
			res.Detail = inv.Detail
			res.Stdout = inv.Stdout
			res.Stderr = inv.Stderr
			if p.OnPoll != nil {
				p.OnPoll(commandID, targetID, inv)
			}
			log.Debug("ステータス取得", zap.Int("poll", res.Polls), zap.String("status", string(inv.Status)))
			if inv.Status.IsTerminal() {
				return res, nil
			}
		case ctx.Err() != nil:
			return cancelledResult(res), nil
		case errors.Is(err, ErrInvocationNotFound):
			if seen {
				// 一度見えた実行が消えた場合は猶予しない
				return res, &NotFoundError{CommandID: commandID, TargetID: targetID, Polls: res.Polls}
			}
			notFound++
			if notFound > p.opts.Grace {
				return res, &NotFoundError{CommandID: commandID, TargetID: targetID, Polls: res.Polls}
			}
			log.Debug("実行がまだ登録されていません", zap.Int("poll", res.Polls), zap.Int("not_found", notFound))
			res.Status = StatusPending
		case errors.Is(err, ErrThrottled):
			log.Warn("ステータス取得がスロットリングされました", zap.Int("poll", res.Polls))
		default:
			return res, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Debug("待機上限に達しました", zap.Duration("timeout", p.opts.Timeout))
			res.Status = StatusTimedOut
			res.TimedOut = true
			return res, nil
		}

		wait := p.opts.Interval
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return cancelledResult(res), nil
		case <-timer.C:
		}
	}
}

func cancelledResult(res PollResult) PollResult {
	res.Status = StatusCancelled
	res.CancelledByCaller = true
	return res
}
