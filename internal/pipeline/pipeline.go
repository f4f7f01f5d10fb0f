// Package pipeline runs one chat submission end to end: schema summary,
// SQL generation, execution, rendering and history.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"csvchat/internal/dataset"
	"csvchat/internal/executor"
	"csvchat/internal/history"
	"csvchat/internal/nl2sql"
	"csvchat/internal/observability"
	"csvchat/internal/session"
)

// Status is the outcome of a submission.
type Status string

const (
	StatusAnswered         Status = "answered"
	StatusDuplicate        Status = "duplicate"
	StatusGenerationFailed Status = "generation_failed"
	StatusNoDataset        Status = "no_dataset"
	StatusNoAPIKey         Status = "no_api_key"
)

// User-facing notices for submissions that never reach execution.
const (
	NoticeDuplicate = "Please enter a new query to proceed."
	NoticeNoAPIKey  = "Please enter your API key to proceed."
	NoticeNoDataset = "Please upload a CSV file to proceed."
)

// Reply is what the surface shows after a submission. Entry is set only for
// StatusAnswered.
type Reply struct {
	Status Status         `json:"status"`
	Notice string         `json:"notice,omitempty"`
	Entry  *history.Entry `json:"entry,omitempty"`
	Err    error          `json:"-"`
}

// Pipeline wires the generator and executor together.
type Pipeline struct {
	Factory           nl2sql.Factory
	Executor          *executor.Executor
	GenerationTimeout time.Duration
	Logger            *slog.Logger
}

// Submit handles one request for sess. Submissions on the same session are
// serialized. The returned error is non-nil only for programming errors;
// every user-visible failure is a Reply.
func (p *Pipeline) Submit(ctx context.Context, sess *session.Session, request string) (Reply, error) {
	if sess == nil {
		return Reply{}, errors.New("nil session")
	}
	sess.Lock()
	defer sess.Unlock()

	reply := p.submit(ctx, sess, request)
	observability.ObserveSubmission(string(reply.Status))
	return reply, nil
}

func (p *Pipeline) submit(ctx context.Context, sess *session.Session, request string) Reply {
	data := sess.Dataset()
	st := sess.Store()
	if data == nil || st == nil {
		return Reply{Status: StatusNoDataset, Notice: NoticeNoDataset}
	}
	apiKey := sess.APIKey()
	if apiKey == "" {
		return Reply{Status: StatusNoAPIKey, Notice: NoticeNoAPIKey}
	}
	if request == sess.Pending() {
		return Reply{Status: StatusDuplicate, Notice: NoticeDuplicate}
	}
	prev := sess.SetPending(request)

	sqlText, err := p.generate(ctx, apiKey, request, data)
	if err != nil {
		sess.SetPending(prev)
		p.logger().WarnContext(ctx, "sql generation failed",
			"session", sess.ID,
			"trace_id", observability.TraceIDFromContext(ctx),
			"error", err)
		return Reply{
			Status: StatusGenerationFailed,
			Notice: fmt.Sprintf("Failed to generate SQL: %v", err),
			Err:    err,
		}
	}

	ex := p.Executor
	if ex == nil {
		ex = &executor.Executor{}
	}
	out := ex.Execute(ctx, st, sqlText)
	errKind := ""
	if out.Err != nil {
		errKind = string(out.Err.Kind)
	}
	observability.ObserveExecution(errKind, out.Duration)

	entry := history.Render(request, out)
	sess.History().Append(entry)
	return Reply{Status: StatusAnswered, Entry: &entry}
}

func (p *Pipeline) generate(ctx context.Context, apiKey, request string, data *dataset.Dataset) (string, error) {
	translator, err := p.Factory(apiKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", nl2sql.ErrGeneration, err)
	}
	if p.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.GenerationTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := translator.Translate(ctx, nl2sql.Request{
		NaturalLanguage: request,
		Schema:          dataset.Summarize(data),
	})
	observability.ObserveGeneration(time.Since(start))
	if err != nil {
		if !errors.Is(err, nl2sql.ErrGeneration) {
			err = fmt.Errorf("%w: %w", nl2sql.ErrGeneration, err)
		}
		return "", err
	}
	p.logger().InfoContext(ctx, "sql generated",
		"provider", res.Provider,
		"model", res.Model,
		"sql", res.SQL)
	return res.SQL, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
