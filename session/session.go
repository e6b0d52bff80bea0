package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"chart_interpreter/history"
	"chart_interpreter/interpreter"
)

// LoadingState is the transient view state of one session.
type LoadingState string

const (
	Idle    LoadingState = "IDLE"
	Loading LoadingState = "LOADING"
	Success LoadingState = "SUCCESS"
	Error   LoadingState = "ERROR"
)

const (
	DraftMarker    = "[僅儲存輸入資訊]"
	draftPreview   = 20
	unknownFailure = "發生未知錯誤"
)

var (
	ErrBusy          = errors.New("analysis already in progress")
	ErrNothingToSave = errors.New("nothing to save")
)

// Analyzer is satisfied by *interpreter.Interpreter.
type Analyzer interface {
	Analyze(ctx context.Context, in interpreter.UserInput) (string, error)
}

// Snapshot is a copy of the session view state.
type Snapshot struct {
	ID        string                `json:"id"`
	State     LoadingState          `json:"state"`
	Result    string                `json:"result"`
	Form      interpreter.UserInput `json:"form"`
	IsDraft   bool                  `json:"isDraft"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// Session 对应一个浏览器页签：表单、结果与加载状态。
type Session struct {
	ID string

	analyzer Analyzer
	history  *history.Store
	log      *zap.Logger

	mu        sync.Mutex
	state     LoadingState
	result    string
	form      interpreter.UserInput
	gen       uint64
	updatedAt time.Time
}

func New(id string, analyzer Analyzer, store *history.Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		ID:        id,
		analyzer:  analyzer,
		history:   store,
		log:       log.With(zap.String("session", id)),
		state:     Idle,
		updatedAt: time.Now(),
	}
}

// Submit runs one analysis. Only one may be outstanding per session; a
// result that arrives after Select or Retry is saved but not shown.
func (s *Session) Submit(ctx context.Context, in interpreter.UserInput) (Snapshot, error) {
	if err := in.Validate(); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	if s.state == Loading {
		s.mu.Unlock()
		return s.Snapshot(), ErrBusy
	}
	s.gen++
	gen := s.gen
	s.setLocked(Loading, "", in)
	s.mu.Unlock()

	out, err := s.analyzer.Analyze(ctx, in)

	s.mu.Lock()
	current := gen == s.gen
	if current {
		if err != nil {
			s.setLocked(Error, UserMessage(err), in)
		} else {
			s.setLocked(Success, out, in)
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("analysis failed", zap.Error(err), zap.Bool("current", current))
		return s.Snapshot(), err
	}
	s.history.Save(ctx, in, out)
	return s.Snapshot(), nil
}

// SaveDraft stores the form with a placeholder result.
func (s *Session) SaveDraft(ctx context.Context, in interpreter.UserInput) (history.Record, error) {
	if !in.HasContent() {
		return history.Record{}, ErrNothingToSave
	}
	return s.history.Save(ctx, in, DraftPlaceholder(in.Question)), nil
}

// Select restores a history record into the view.
func (s *Session) Select(ctx context.Context, id string) (Snapshot, error) {
	rec, err := s.history.Get(ctx, id)
	if err != nil {
		return s.Snapshot(), err
	}
	s.mu.Lock()
	s.gen++
	s.setLocked(Success, rec.Result, rec.Input)
	s.mu.Unlock()
	return s.Snapshot(), nil
}

// Retry resets the view to idle, keeping the form.
func (s *Session) Retry() Snapshot {
	s.mu.Lock()
	s.gen++
	s.setLocked(Idle, "", s.form)
	s.mu.Unlock()
	return s.Snapshot()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		State:     s.state,
		Result:    s.result,
		Form:      s.form,
		IsDraft:   IsDraft(s.result),
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) setLocked(state LoadingState, result string, form interpreter.UserInput) {
	s.state = state
	s.result = result
	s.form = form
	s.updatedAt = time.Now()
}

// DraftPlaceholder is the result text stored for input-only saves.
func DraftPlaceholder(question string) string {
	q := []rune(strings.TrimSpace(question))
	if len(q) == 0 {
		return DraftMarker
	}
	if len(q) > draftPreview {
		q = q[:draftPreview]
	}
	return DraftMarker + ": " + string(q) + "..."
}

func IsDraft(result string) bool {
	return strings.HasPrefix(result, DraftMarker)
}

// UserMessage is the text shown for a failed analysis; provider detail never leaks.
func UserMessage(err error) string {
	var ae *interpreter.AnalysisError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return unknownFailure
}
