package interpreter

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTemperature    = 0.3
	DefaultThinkingBudget = 32768
)

// Interpreter 负责把 UserInput 组装成请求、调用模型并规整结果。
type Interpreter struct {
	llm       LLMClient
	assembler *Assembler
	system    string
	sampling  Sampling
	log       *zap.Logger
}

type Option func(*Interpreter)

func WithPersona(p Persona) Option {
	return func(i *Interpreter) { i.system = p.SystemInstruction() }
}

func WithAssembler(a *Assembler) Option {
	return func(i *Interpreter) {
		if a != nil {
			i.assembler = a
		}
	}
}

func WithThinkingBudget(n int32) Option {
	return func(i *Interpreter) { i.sampling.ThinkingBudget = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(i *Interpreter) {
		if l != nil {
			i.log = l
		}
	}
}

func New(llm LLMClient, opts ...Option) (*Interpreter, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	i := &Interpreter{
		llm:      llm,
		system:   DefaultPersona.SystemInstruction(),
		sampling: Sampling{Temperature: DefaultTemperature, ThinkingBudget: DefaultThinkingBudget},
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(i)
	}
	if i.assembler == nil {
		i.assembler = NewAssembler(WithAssemblerLogger(i.log))
	}
	return i, nil
}

// BuildRequest exposes the exact payload Analyze would send.
func (i *Interpreter) BuildRequest(in UserInput) Request {
	return Request{
		System:   i.system,
		Sampling: i.sampling,
		Parts:    i.assembler.Parts(in),
	}
}

// Analyze never retries. Failures come back as *AnalysisError.
func (i *Interpreter) Analyze(ctx context.Context, in UserInput) (string, error) {
	req := i.BuildRequest(in)
	start := time.Now()
	raw, err := i.llm.Complete(ctx, req)
	if err != nil {
		i.log.Error("interpreter analysis error",
			zap.Error(err),
			zap.Int("parts", len(req.Parts)),
			zap.Duration("elapsed", time.Since(start)))
		return "", &AnalysisError{Message: FailureMessage, Err: err}
	}
	i.log.Debug("interpreter analysis done",
		zap.Int("parts", len(req.Parts)),
		zap.Int("chars", len(raw)),
		zap.Duration("elapsed", time.Since(start)))
	return PostProcess(raw), nil
}
