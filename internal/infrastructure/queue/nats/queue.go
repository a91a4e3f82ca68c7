package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/resilience"
)

type Queue struct {
	conn            *nats.Conn
	questionSubject string
	resultSubject   string
	executor        *resilience.Executor
	logger          *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, questionSubject, resultSubject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("answer-evidence"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:            conn,
		questionSubject: questionSubject,
		resultSubject:   resultSubject,
		executor:        options.ResilienceExecutor,
		logger:          logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishPool(ctx context.Context, pool *domain.CandidatePool) error {
	payload, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("marshal candidate pool: %w", err)
	}

	_, err = resilience.Call(ctx, q.executor, "nats.publish", func(context.Context) (struct{}, error) {
		if err := q.conn.Publish(q.resultSubject, payload); err != nil {
			return struct{}{}, fmt.Errorf("nats publish: %w", err)
		}
		return struct{}{}, nil
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeQuestions blocks until ctx is done, handing each decoded question to
// handler. Workers share a queue group so each question is handled once.
func (q *Queue) SubscribeQuestions(ctx context.Context, handler func(context.Context, domain.Question) error) error {
	sub, err := q.conn.QueueSubscribe(q.questionSubject, "candidate-workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		question, err := decodeQuestion(msg.Data)
		if err != nil {
			q.logger.Warn("question_decode_failed", "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, question); err != nil {
			q.logger.Error("question_handler_failed", "question_id", question.ID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// decodeQuestion accepts a JSON question or a bare text payload.
func decodeQuestion(data []byte) (domain.Question, error) {
	var question domain.Question
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &question); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
		}
	} else {
		question.Text = string(data)
	}
	if question.Text == "" {
		return domain.Question{}, domain.WrapError(domain.ErrInvalidInput, "decode question", errors.New("empty question text"))
	}
	return question, nil
}
