package runcmd

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"ssmrun/internal/service/common"
)

const (
	DefaultConcurrency = 5
	DefaultRetryDelay  = 5 * time.Second
)

// DriverOptions はオーケストレーションの設定
type DriverOptions struct {
	Poll PollOptions
	// Concurrency は同時に処理するターゲット数。1で逐次処理
	Concurrency int
	// MaxAttempts はスロットリング時の送信試行回数の上限。1でリトライなし
	MaxAttempts int
	RetryDelay  time.Duration
	// RunID はこの実行で送信する全コマンドのコメントに付与する。空なら自動採番
	RunID string
}

// ResultHook はターゲット1台の処理が終わるたびに呼ばれる。並行に呼ばれうる
type ResultHook func(Result)

// Driver はターゲットごとに submit → poll → collect を実行し、結果を集計する
type Driver struct {
	svc       Service
	opts      DriverOptions
	logger    *zap.Logger
	docs      *DocumentManager
	submitter *Submitter
	poller    *Poller
	collector *Collector

	OnResult ResultHook
}

// NewDriver はDriverを作成する
func NewDriver(svc Service, opts DriverOptions, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.RunID == "" {
		opts.RunID = ksuid.New().String()
	}

	return &Driver{
		svc:       svc,
		opts:      opts,
		logger:    logger,
		docs:      NewDocumentManager(svc),
		submitter: NewSubmitter(svc, RunComment(opts.RunID)),
		poller:    NewPoller(svc, opts.Poll, logger),
		collector: NewCollector(svc),
	}
}

// RunComment は送信コマンドに付与するコメント
func RunComment(runID string) string {
	return "ssmrun " + runID
}

// RunID はこのDriverが送信に使う実行ID
func (d *Driver) RunID() string {
	return d.opts.RunID
}

// SetPollHook はポーリングごとのフックを設定する
func (d *Driver) SetPollHook(hook PollHook) {
	d.poller.OnPoll = hook
}

// Run は jobs の各ターゲットに ref を実行する。1ターゲットの失敗は他に影響しない。
// 全ターゲットに影響する設定誤りの場合のみ、送信前に *ConfigError を返す
func (d *Driver) Run(ctx context.Context, ref DocumentRef, jobs []Job) (Report, error) {
	report := Report{RunID: d.opts.RunID, Document: ref}

	if err := d.preflight(ctx, ref, jobs); err != nil {
		return report, err
	}

	log := d.logger.With(zap.String("run_id", d.opts.RunID), zap.String("document", ref.String()))
	log.Debug("実行開始", zap.Int("targets", len(jobs)), zap.Int("concurrency", d.opts.Concurrency))

	results := make([]Result, len(jobs))
	executor := common.NewParallelExecutor(d.opts.Concurrency)
	for i, job := range jobs {
		i, job := i, job
		executor.Execute(func() {
			results[i] = d.runJob(ctx, ref, job, log)
			if d.OnResult != nil {
				d.OnResult(results[i])
			}
		})
	}
	executor.Wait()

	report.Results = results
	for _, res := range results {
		if res.Succeeded() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	log.Debug("実行終了", zap.Int("succeeded", report.Succeeded), zap.Int("failed", report.Failed))
	return report, nil
}

// preflight はドキュメントの存在と指定バージョンを確認する
func (d *Driver) preflight(ctx context.Context, ref DocumentRef, jobs []Job) error {
	if len(jobs) == 0 {
		return &ConfigError{Document: ref, Reason: "ターゲットが指定されていません"}
	}
	if ref.Version < 0 {
		return &ConfigError{Document: ref, Reason: "バージョンは1以上で指定してください"}
	}
	for _, job := range jobs {
		if job.TargetID == "" {
			return &ConfigError{Document: ref, Reason: "空のターゲットIDが含まれています"}
		}
	}

	doc, found, err := d.docs.Describe(ctx, ref.Name)
	if err != nil {
		return &ConfigError{Document: ref, Reason: "ドキュメントを確認できません", Err: err}
	}
	if !found {
		return &ConfigError{Document: ref, Reason: "ドキュメントが存在しません", Err: ErrDocumentNotFound}
	}
	if ref.Version > doc.LatestVersion {
		return &ConfigError{Document: ref, Reason: "指定バージョンが存在しません"}
	}
	return nil
}

// runJob は1ターゲット分のパイプラインを実行する
func (d *Driver) runJob(ctx context.Context, ref DocumentRef, job Job, log *zap.Logger) Result {
	start := time.Now()
	res := d.pipeline(ctx, ref, job, log.With(zap.String("target", job.TargetID)))
	res.Duration = time.Since(start)
	return res
}

func (d *Driver) pipeline(ctx context.Context, ref DocumentRef, job Job, log *zap.Logger) Result {
	res := Result{TargetID: job.TargetID, Status: StatusPending}
	if markCancelled(ctx, &res) {
		return res
	}

	// 死活確認（オフラインなら送信しない）
	target, err := d.svc.DescribeTarget(ctx, job.TargetID)
	if err != nil {
		if markCancelled(ctx, &res) {
			return res
		}
		res.Status = StatusFailed
		res.Err = &TargetOfflineError{TargetID: job.TargetID, Liveness: LivenessUnknown, Err: err}
		return res
	}
	if target.Liveness != LivenessOnline {
		res.Status = StatusFailed
		res.Err = &TargetOfflineError{TargetID: job.TargetID, Liveness: target.Liveness}
		return res
	}

	exec, attempts, err := d.submit(ctx, ref, job, log)
	res.Attempts = attempts
	if err != nil {
		if markCancelled(ctx, &res) {
			return res
		}
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	res.CommandID = exec.CommandID
	log = log.With(zap.String("command_id", exec.CommandID))

	polled, err := d.poller.Poll(ctx, exec.CommandID, job.TargetID)
	res.Status = polled.Status
	res.Stdout = polled.Stdout
	res.Stderr = polled.Stderr
	res.CancelledByCaller = polled.CancelledByCaller
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	if polled.CancelledByCaller {
		return res
	}

	out, err := d.collector.Collect(ctx, exec, job.TargetID)
	if err != nil {
		log.Warn("出力を取得できませんでした", zap.Error(err))
		res.OutputUnavailable = true
		return res
	}
	res.Stdout = out.Stdout
	res.Stderr = out.Stderr
	return res
}

// markCancelled は呼び出し側がキャンセル済みなら res をキャンセル扱いにして true を返す
func markCancelled(ctx context.Context, res *Result) bool {
	if ctx.Err() == nil {
		return false
	}
	res.Status = StatusCancelled
	res.CancelledByCaller = true
	return true
}

// submit はスロットリングの場合に限り MaxAttempts まで送信を繰り返す
func (d *Driver) submit(ctx context.Context, ref DocumentRef, job Job, log *zap.Logger) (Execution, int, error) {
	for attempt := 1; ; attempt++ {
		exec, err := d.submitter.Submit(ctx, ref, []string{job.TargetID}, job.Params)
		if err == nil {
			return exec, attempt, nil
		}

		var subErr *SubmissionError
		if attempt >= d.opts.MaxAttempts || !errors.As(err, &subErr) || !subErr.Retryable() {
			return Execution{}, attempt, err
		}

		delay := d.opts.RetryDelay * time.Duration(attempt)
		log.Debug("送信を再試行します", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Execution{}, attempt, err
		case <-timer.C:
		}
	}
}
