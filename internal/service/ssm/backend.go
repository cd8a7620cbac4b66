package ssm

import (
	"time"

	"go.uber.org/zap"

	"ssmrun/internal/service/runcmd"
)

// Backend はSSM Run Commandを使った runcmd.Service の実装
type Backend struct {
	api     API
	output  OutputOptions
	objects ObjectReader
	logs    LogReader
	logger  *zap.Logger

	documentWait     time.Duration
	documentInterval time.Duration
}

// Option はBackendの設定関数
type Option func(*Backend)

// WithOutput はコマンド出力の転送先を設定する
func WithOutput(opts OutputOptions) Option {
	return func(b *Backend) { b.output = opts }
}

// WithObjectReader はS3出力の読み出しに使うリーダーを設定する
func WithObjectReader(r ObjectReader) Option {
	return func(b *Backend) { b.objects = r }
}

// WithLogReader はCloudWatch Logs出力の読み出しに使うリーダーを設定する
func WithLogReader(r LogReader) Option {
	return func(b *Backend) { b.logs = r }
}

// WithLogger はデバッグログの出力先を設定する
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithDocumentWait はドキュメントがActiveになるまでの待機設定を変更する
func WithDocumentWait(timeout, interval time.Duration) Option {
	return func(b *Backend) {
		b.documentWait = timeout
		b.documentInterval = interval
	}
}

// NewBackend はBackendを作成する
func NewBackend(api API, opts ...Option) *Backend {
	b := &Backend{
		api:              api,
		logger:           zap.NewNop(),
		documentWait:     defaultDocumentWait,
		documentInterval: defaultDocumentInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ runcmd.Service = (*Backend)(nil)
