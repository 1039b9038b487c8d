package outbox // 发件箱模式: 业务事务内写入事件，后台中继负责投递到消息队列

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/storage/models"
	"smarthire-ats/internal/tracing"
)

const (
	defaultPollingInterval = 5 * time.Second // 默认轮询数据库中 outbox 表的间隔
	defaultBatchSize       = 10              // 每次轮询处理的消息批量大小
	maxRetryCount          = 5               // 消息发布失败的最大重试次数
)

// Publisher 消息发布器，*storage.RabbitMQ 实现了该接口
type Publisher interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
}

// Option 中继配置项
type Option func(*MessageRelay)

// WithPollingInterval 设置轮询间隔
func WithPollingInterval(d time.Duration) Option {
	return func(r *MessageRelay) {
		if d > 0 {
			r.pollingInterval = d
		}
	}
}

// WithBatchSize 设置每批处理的消息数
func WithBatchSize(n int) Option {
	return func(r *MessageRelay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(l zerolog.Logger) Option {
	return func(r *MessageRelay) {
		r.logger = l
	}
}

// MessageRelay 轮询 outbox 表并将消息发布到消息代理。
type MessageRelay struct {
	db              *gorm.DB
	publisher       Publisher
	logger          zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	tracer          trace.Tracer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMessageRelay 创建一个新的 MessageRelay 实例。
func NewMessageRelay(db *gorm.DB, publisher Publisher, opts ...Option) *MessageRelay {
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger.Component("outbox"),
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		tracer:          tracing.Tracer("outbox"),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start 在后台开始轮询，ctx 取消或调用 Stop 后退出。
func (r *MessageRelay) Start(ctx context.Context) {
	r.logger.Info().Dur("interval", r.pollingInterval).Int("batch_size", r.batchSize).Msg("MessageRelay starting")
	ticker := time.NewTicker(r.pollingInterval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.logger.Info().Msg("MessageRelay stopped")
				return
			case <-r.done:
				r.logger.Info().Msg("MessageRelay stopped")
				return
			case <-ticker.C:
				if _, err := r.ProcessPending(ctx); err != nil {
					r.logger.Error().Err(err).Msg("处理待发送消息失败")
				}
			}
		}
	}()
}

// Stop 停止中继并等待当前批次完成。
func (r *MessageRelay) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info().Msg("MessageRelay stopping")
		close(r.done)
	})
	r.wg.Wait()
}

// ProcessPending 获取并处理一批待发送消息，返回本批处理的条数。
func (r *MessageRelay) ProcessPending(ctx context.Context) (int, error) {
	var messages []models.OutboxMessage

	// 空轮询不创建 Span
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	defer tx.Rollback()

	// FOR UPDATE SKIP LOCKED 让多个实例可以并行中继，不支持行锁的数据库会忽略该子句
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Order("id asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		r.logger.Error().Err(err).Msg("查询待发送消息失败")
		return 0, err
	}

	if len(messages) == 0 {
		return 0, tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	r.logger.Debug().Int("count", len(messages)).Msg("获取到待发送消息")

	failed := 0
	for i := range messages {
		msg := &messages[i]
		err := r.publisher.PublishMessage(ctx, msg.TargetExchange, msg.TargetRoutingKey, []byte(msg.Payload), true)

		if err != nil {
			failed++
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= maxRetryCount {
				msg.Status = models.OutboxStatusFailed
			}
			r.logger.Warn().Err(err).
				Uint64("id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retries", msg.RetryCount).
				Str("status", msg.Status).
				Msg("发布发件箱消息失败")
		} else {
			msg.Status = models.OutboxStatusSent
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		// 更新失败时整批回滚，下一轮重新拾取
		if err := tx.Save(msg).Error; err != nil {
			r.logger.Error().Err(err).Uint64("id", msg.ID).Msg("更新发件箱消息状态失败")
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
			return 0, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return 0, err
	}
	span.SetAttributes(attribute.Int("messaging.batch.failed_count", failed))
	span.SetStatus(codes.Ok, "")
	return len(messages), nil
}
