package runcmd

import (
	"context"
	"errors"
	"time"
)

// Submitter はコマンドを1回だけ送信する
type Submitter struct {
	svc     Service
	comment string
	now     func() time.Time
}

// NewSubmitter はSubmitterを作成する。comment は送信ごとにコマンドへ付与される
func NewSubmitter(svc Service, comment string) *Submitter {
	return &Submitter{svc: svc, comment: comment, now: time.Now}
}

// Submit はドキュメントをターゲット群に送信し、新しいExecutionを返す。
// 失敗時は常に *SubmissionError を返し、内部でリトライはしない
func (s *Submitter) Submit(ctx context.Context, ref DocumentRef, targets []string, params map[string]string) (Execution, error) {
	if ref.Name == "" {
		return Execution{}, &SubmissionError{Document: ref, Targets: targets, Reason: "ドキュメント名が空です"}
	}
	if len(targets) == 0 {
		return Execution{}, &SubmissionError{Document: ref, Reason: "ターゲットが指定されていません"}
	}
	if ref.Version < 0 {
		return Execution{}, &SubmissionError{Document: ref, Targets: targets, Reason: "バージョンは1以上で指定してください"}
	}

	submittedAt := s.now()
	commandID, err := s.svc.Submit(ctx, SubmitRequest{
		Document: ref,
		Targets:  targets,
		Params:   params,
		Comment:  s.comment,
	})
	if err != nil {
		reason := ""
		if errors.Is(err, ErrDocumentNotFound) {
			reason = "ドキュメントが存在しません"
		}
		return Execution{}, &SubmissionError{Document: ref, Targets: targets, Reason: reason, Err: err}
	}
	if commandID == "" {
		return Execution{}, &SubmissionError{Document: ref, Targets: targets, Reason: "相関IDが返されませんでした"}
	}

	return Execution{
		CommandID:   commandID,
		Document:    ref,
		Targets:     append([]string(nil), targets...),
		SubmittedAt: submittedAt,
		Status:      StatusPending,
	}, nil
}
