// Package runcmdtest はテスト用のインメモリ実行サービスを提供する。
package runcmdtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ssmrun/internal/service/runcmd"
)

// Step はGetStatus 1回分の応答
type Step struct {
	Status   runcmd.Status
	NotFound bool
	Err      error
	Stdout   string
	Stderr   string
}

type document struct {
	versions       []string
	formats        []runcmd.DocumentFormat
	created        []time.Time
	defaultVersion int
}

type invocation struct {
	commandID string
	targetID  string
	req       runcmd.SubmitRequest
	steps     []Step
	calls     int
	last      runcmd.Invocation
	expired   bool
	at        time.Time
}

// Service は runcmd.Service のインメモリ実装
type Service struct {
	mu sync.Mutex

	docs        map[string]*document
	invocations map[string]*invocation // commandID/targetID
	commands    map[string][]string    // commandID → targets
	scripts     map[string][]Step
	liveness    map[string]runcmd.Liveness
	submitErrs  map[string][]error
	expired     map[string]bool

	Submitted       []runcmd.SubmitRequest
	Cancelled       []string
	GetStatusCalls  int
	GetOutputCalls  int
	DescribeTargets int
}

// New は空のServiceを作成する
func New() *Service {
	return &Service{
		docs:        map[string]*document{},
		invocations: map[string]*invocation{},
		commands:    map[string][]string{},
		scripts:     map[string][]Step{},
		liveness:    map[string]runcmd.Liveness{},
		submitErrs:  map[string][]error{},
		expired:     map[string]bool{},
	}
}

// Script は targetID に送信されたコマンドが返すステータス列を設定する。
// 最後の要素は以降の問い合わせで繰り返される。未設定のターゲットは即座にSuccessを返す
func (s *Service) Script(targetID string, steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[targetID] = steps
}

// SetLiveness はターゲットの死活を設定する。未設定のターゲットはOnline
func (s *Service) SetLiveness(targetID string, l runcmd.Liveness) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness[targetID] = l
}

// FailSubmit は targetID への送信を順に errs で失敗させる
func (s *Service) FailSubmit(targetID string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitErrs[targetID] = errs
}

// ExpireOutput は targetID の出力を失効させる
func (s *Service) ExpireOutput(targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired[targetID] = true
}

// PutDocument はドキュメントを直接登録する
func (s *Service) PutDocument(name string, contents ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := &document{defaultVersion: 1}
	for _, c := range contents {
		doc.versions = append(doc.versions, c)
		doc.formats = append(doc.formats, runcmd.FormatJSON)
		doc.created = append(doc.created, time.Now())
	}
	s.docs[name] = doc
}

// SubmitCount は送信回数を返す
func (s *Service) SubmitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Submitted)
}

// EchoParams はパラメータを key=value 行にした文字列を返す
func EchoParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, params[k])
	}
	return b.String()
}

func key(commandID, targetID string) string {
	return commandID + "/" + targetID
}

func (s *Service) Submit(ctx context.Context, req runcmd.SubmitRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[req.Document.Name]; !ok {
		return "", runcmd.ErrDocumentNotFound
	}
	for _, t := range req.Targets {
		if errs := s.submitErrs[t]; len(errs) > 0 {
			s.submitErrs[t] = errs[1:]
			return "", errs[0]
		}
	}

	commandID := uuid.NewString()
	s.Submitted = append(s.Submitted, req)
	for _, t := range req.Targets {
		steps := s.scripts[t]
		if len(steps) == 0 {
			steps = []Step{{Status: runcmd.StatusSuccess}}
		}
		s.invocations[key(commandID, t)] = &invocation{
			commandID: commandID,
			targetID:  t,
			req:       req,
			steps:     steps,
			expired:   s.expired[t],
			at:        time.Now(),
		}
		s.commands[commandID] = append(s.commands[commandID], t)
	}
	return commandID, nil
}

func (s *Service) GetStatus(ctx context.Context, commandID, targetID string) (runcmd.Invocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetStatusCalls++

	inv, ok := s.invocations[key(commandID, targetID)]
	if !ok {
		return runcmd.Invocation{}, runcmd.ErrInvocationNotFound
	}

	idx := inv.calls
	if idx >= len(inv.steps) {
		idx = len(inv.steps) - 1
	}
	inv.calls++
	step := inv.steps[idx]
	if step.NotFound {
		return runcmd.Invocation{}, runcmd.ErrInvocationNotFound
	}
	if step.Err != nil {
		return runcmd.Invocation{}, step.Err
	}

	stdout := step.Stdout
	if stdout == "" && step.Status == runcmd.StatusSuccess {
		stdout = EchoParams(inv.req.Params)
	}
	inv.last = runcmd.Invocation{
		CommandID:   commandID,
		TargetID:    targetID,
		Status:      step.Status,
		Stdout:      stdout,
		Stderr:      step.Stderr,
		RequestedAt: inv.at,
	}
	return inv.last, nil
}

func (s *Service) GetOutput(ctx context.Context, commandID, targetID string) (runcmd.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetOutputCalls++

	inv, ok := s.invocations[key(commandID, targetID)]
	if !ok || inv.expired {
		return runcmd.Output{}, runcmd.ErrInvocationNotFound
	}
	return runcmd.Output{Stdout: inv.last.Stdout, Stderr: inv.last.Stderr, Source: "inline"}, nil
}

func (s *Service) ListInvocations(ctx context.Context, commandID string) ([]runcmd.Invocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets, ok := s.commands[commandID]
	if !ok {
		return nil, runcmd.ErrInvocationNotFound
	}
	var out []runcmd.Invocation
	for _, t := range targets {
		inv := s.invocations[key(commandID, t)]
		last := inv.last
		if last.CommandID == "" {
			last = runcmd.Invocation{CommandID: commandID, TargetID: t, Status: runcmd.StatusPending, RequestedAt: inv.at}
		}
		out = append(out, last)
	}
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, commandID string, targetIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commands[commandID]; !ok {
		return runcmd.ErrInvocationNotFound
	}
	s.Cancelled = append(s.Cancelled, commandID)
	targets := targetIDs
	if len(targets) == 0 {
		targets = s.commands[commandID]
	}
	for _, t := range targets {
		if inv, ok := s.invocations[key(commandID, t)]; ok {
			inv.steps = []Step{{Status: runcmd.StatusCancelled}}
			inv.calls = 0
		}
	}
	return nil
}

func (s *Service) describe(name string, doc *document) runcmd.Document {
	latest := len(doc.versions)
	return runcmd.Document{
		Name:           name,
		LatestVersion:  latest,
		DefaultVersion: doc.defaultVersion,
		Format:         doc.formats[latest-1],
		Status:         "Active",
		CreatedAt:      doc.created[0],
	}
}

func (s *Service) DescribeDocument(ctx context.Context, name string) (runcmd.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok {
		return runcmd.Document{}, runcmd.ErrDocumentNotFound
	}
	return s.describe(name, doc), nil
}

func (s *Service) CreateDocument(ctx context.Context, name, content string, format runcmd.DocumentFormat) (runcmd.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[name]; ok {
		return runcmd.Document{}, fmt.Errorf("document %s already exists", name)
	}
	doc := &document{
		versions:       []string{content},
		formats:        []runcmd.DocumentFormat{format},
		created:        []time.Time{time.Now()},
		defaultVersion: 1,
	}
	s.docs[name] = doc
	return s.describe(name, doc), nil
}

func (s *Service) UpdateDocument(ctx context.Context, name, content string, format runcmd.DocumentFormat) (runcmd.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok {
		return runcmd.Document{}, runcmd.ErrDocumentNotFound
	}
	if doc.versions[len(doc.versions)-1] == content {
		return runcmd.Document{}, runcmd.ErrDuplicateContent
	}
	doc.versions = append(doc.versions, content)
	doc.formats = append(doc.formats, format)
	doc.created = append(doc.created, time.Now())
	return s.describe(name, doc), nil
}

func (s *Service) SetDefaultVersion(ctx context.Context, name string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok {
		return runcmd.ErrDocumentNotFound
	}
	if version < 1 || version > len(doc.versions) {
		return fmt.Errorf("invalid version %d", version)
	}
	doc.defaultVersion = version
	return nil
}

func (s *Service) GetDocumentContent(ctx context.Context, name string, version int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok {
		return "", runcmd.ErrDocumentNotFound
	}
	if version == 0 {
		version = doc.defaultVersion
	}
	if version < 1 || version > len(doc.versions) {
		return "", fmt.Errorf("invalid version %d", version)
	}
	return doc.versions[version-1], nil
}

func (s *Service) ListDocumentVersions(ctx context.Context, name string) ([]runcmd.DocumentVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok {
		return nil, runcmd.ErrDocumentNotFound
	}
	out := make([]runcmd.DocumentVersion, len(doc.versions))
	for i := range doc.versions {
		out[i] = runcmd.DocumentVersion{
			Version:   i + 1,
			IsDefault: i+1 == doc.defaultVersion,
			CreatedAt: doc.created[i],
			Status:    "Active",
		}
	}
	return out, nil
}

func (s *Service) DeleteDocument(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[name]; !ok {
		return runcmd.ErrDocumentNotFound
	}
	delete(s.docs, name)
	return nil
}

func (s *Service) DescribeTarget(ctx context.Context, targetID string) (runcmd.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DescribeTargets++
	l, ok := s.liveness[targetID]
	if !ok {
		l = runcmd.LivenessOnline
	}
	return runcmd.Target{ID: targetID, Liveness: l}, nil
}

var _ runcmd.Service = (*Service)(nil)
