package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"smarthire-ats/internal/storage"
	"smarthire-ats/internal/tracing"
)

// Worker 从上传队列消费消息并交给 AnalysisService 处理。
// 成功时确认消息；失败、超时或消息格式错误时拒绝且不重新入队。
type Worker struct {
	service *AnalysisService
	source  DeliverySource
}

// NewWorker 创建消费者
func NewWorker(service *AnalysisService, source DeliverySource) (*Worker, error) {
	if service == nil {
		return nil, errors.New("analysis service is nil")
	}
	if source == nil {
		return nil, errors.New("delivery source is nil")
	}
	return &Worker{service: service, source: source}, nil
}

// Run 启动 Settings.Workers 个并发消费者，阻塞直到 ctx 取消或消息通道关闭
func (w *Worker) Run(ctx context.Context) error {
	settings := w.service.settings
	l := settings.Logger

	deliveries, err := w.source.Consume(ctx, settings.Queue, settings.PrefetchCount)
	if err != nil {
		return fmt.Errorf("启动消费者失败: %w", err)
	}

	l.Info().
		Str("queue", settings.Queue).
		Int("workers", settings.Workers).
		Dur("message_timeout", settings.MessageTimeout).
		Msg("简历分析消费者已启动")

	var wg sync.WaitGroup
	for i := 0; i < settings.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for d := range deliveries {
				w.handle(ctx, d)
			}
			l.Debug().Int("worker", id).Msg("消费协程退出")
		}(i)
	}
	wg.Wait()

	l.Info().Str("queue", settings.Queue).Msg("简历分析消费者已停止")
	return ctx.Err()
}

// handle 处理单条消息并确认或拒绝
func (w *Worker) handle(parent context.Context, d storage.Delivery) {
	settings := w.service.settings
	messageID := d.MessageID()

	ctx, cancel := context.WithTimeout(d.Context(parent), settings.MessageTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "Worker.HandleDelivery", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.source.name", settings.Queue),
			attribute.String("messaging.message.id", messageID),
			attribute.Int("messaging.message.body.size", len(d.Body())),
		))
	defer span.End()

	l := settings.Logger.With().Str("message_id", messageID).Logger()

	var msg storage.ResumeUploadMessage
	if err := json.Unmarshal(d.Body(), &msg); err != nil {
		l.Error().Err(err).Msg("反序列化上传消息失败，拒绝消息")
		tracing.RecordMessageRejected(span, messageID, NewInvalidMessageError("", err.Error()).Error())
		w.reject(d, l)
		return
	}
	span.SetAttributes(attribute.String("submission_uuid", msg.SubmissionUUID))

	err := w.service.Process(ctx, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			tracing.RecordMessageTimeout(span, messageID, settings.MessageTimeout)
		} else {
			tracing.RecordMessageRejected(span, messageID, err.Error())
		}
		l.Error().Err(err).Str("submission_uuid", msg.SubmissionUUID).Msg("处理简历失败，拒绝消息")
		w.reject(d, l)
		return
	}

	if err := d.Ack(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		l.Error().Err(err).Msg("确认消息失败")
		return
	}
	span.SetStatus(codes.Ok, "")
}

func (w *Worker) reject(d storage.Delivery, l zerolog.Logger) {
	if err := d.Reject(); err != nil {
		l.Error().Err(err).Msg("拒绝消息失败")
	}
}
