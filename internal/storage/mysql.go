package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/constants"
	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/storage/models"
	"smarthire-ats/internal/tracing"
)

// ErrAnalysisNotFound 分析记录不存在
var ErrAnalysisNotFound = errors.New("analysis not found")

var mysqlTracer = tracing.Tracer("storage/mysql")

type spanCtxKey struct{}

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer   trace.Tracer
	dbName   string
	dbSystem attribute.KeyValue
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string, dbSystem attribute.KeyValue) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:   mysqlTracer,
		dbName:   dbName,
		dbSystem: dbSystem,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	hooks := []struct {
		name   string
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", "ROW", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", "RAW", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("otel:before_"+h.name, p.before(h.op)); err != nil {
			return err
		}
		if err := h.after("otel:after_"+h.name, p.after()); err != nil {
			return err
		}
	}
	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				p.dbSystem,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, spanCtxKey{}, span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(spanCtxKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if sql := db.Statement.SQL.String(); sql != "" {
			span.SetAttributes(attribute.String("db.statement", tracing.SafeSQL(sql)))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		// ErrRecordNotFound 是业务逻辑正常情况的一部分
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// AnalysisStore 分析记录的持久化接口
type AnalysisStore interface {
	CreatePending(ctx context.Context, analysis *models.ResumeAnalysis) error
	SaveAnalysis(ctx context.Context, analysis *models.ResumeAnalysis, event *models.OutboxMessage) error
	GetAnalysis(ctx context.Context, submissionUUID string) (*models.ResumeAnalysis, error)
	MarkFailed(ctx context.Context, submissionUUID, reason string) error
	ListByJob(ctx context.Context, targetJobID string, offset, limit int) ([]models.ResumeAnalysis, int64, error)
}

// 确保MySQL实现了AnalysisStore接口
var _ AnalysisStore = (*MySQL)(nil)

// MySQL 提供关系数据库功能
type MySQL struct {
	db     *gorm.DB
	dbName string
}

// NewMySQL 创建MySQL客户端并迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	m, err := OpenDatabase(mysql.Open(cfg.DSN()), cfg.Database, semconv.DBSystemMySQL, gormLogLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return m, nil
}

// OpenDatabase 用任意 GORM dialector 打开数据库，注册追踪插件并自动迁移
func OpenDatabase(dialector gorm.Dialector, dbName string, dbSystem attribute.KeyValue, level gormlogger.LogLevel) (*MySQL, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := db.Use(NewGormTracingPlugin(dbName, dbSystem)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, dbName: dbName}
	if err := m.autoMigrateSchema(); err != nil {
		_ = m.Close()
		return nil, err
	}

	l := logger.Component("mysql")
	l.Info().Str("db", dbName).Msg("数据库连接成功，表结构已迁移")
	return m, nil
}

func gormLogLevel(level int) gormlogger.LogLevel {
	switch level {
	case 1:
		return gormlogger.Silent
	case 2:
		return gormlogger.Error
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err := silentDB.AutoMigrate(&models.ResumeAnalysis{}, &models.OutboxMessage{}); err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// CreatePending 登记一条待分析记录，已存在时不做修改
func (m *MySQL) CreatePending(ctx context.Context, analysis *models.ResumeAnalysis) error {
	if analysis == nil || analysis.SubmissionUUID == "" {
		return fmt.Errorf("submission_uuid不能为空")
	}
	if analysis.ProcessingStatus == "" {
		analysis.ProcessingStatus = constants.StatusPendingParse
	}
	return m.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(analysis).Error
}

// SaveAnalysis 保存分析结果；event 不为空时在同一事务中写入发件箱
func (m *MySQL) SaveAnalysis(ctx context.Context, analysis *models.ResumeAnalysis, event *models.OutboxMessage) error {
	if analysis == nil || analysis.SubmissionUUID == "" {
		return fmt.Errorf("submission_uuid不能为空")
	}

	ctx, span := mysqlTracer.Start(ctx, "MySQL.SaveAnalysis", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.name", m.dbName),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.sql.table", models.ResumeAnalysis{}.TableName()),
		attribute.String("submission_uuid", analysis.SubmissionUUID),
		attribute.Bool("outbox", event != nil),
	)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 按主键幂等写入，重复投递的消息覆盖旧结果
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_uuid"}},
			UpdateAll: true,
		}).Create(analysis).Error; err != nil {
			return fmt.Errorf("保存分析记录失败: %w", err)
		}
		if event == nil {
			return nil
		}
		if event.Status == "" {
			event.Status = models.OutboxStatusPending
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("写入发件箱失败: %w", err)
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetAnalysis 按 submission_uuid 查询分析记录
func (m *MySQL) GetAnalysis(ctx context.Context, submissionUUID string) (*models.ResumeAnalysis, error) {
	var analysis models.ResumeAnalysis
	err := m.db.WithContext(ctx).Where("submission_uuid = ?", submissionUUID).First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAnalysisNotFound, submissionUUID)
		}
		return nil, fmt.Errorf("查询分析记录失败: %w", err)
	}
	return &analysis, nil
}

// MarkFailed 标记分析失败
func (m *MySQL) MarkFailed(ctx context.Context, submissionUUID, reason string) error {
	return m.db.WithContext(ctx).
		Model(&models.ResumeAnalysis{}).
		Where("submission_uuid = ?", submissionUUID).
		Updates(map[string]interface{}{
			"processing_status": constants.StatusFailed,
			"error_message":     reason,
		}).Error
}

// ListByJob 按岗位分页列出已完成的分析，岗位匹配分和 ATS 分从高到低排序
func (m *MySQL) ListByJob(ctx context.Context, targetJobID string, offset, limit int) ([]models.ResumeAnalysis, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 10
	}

	query := func() *gorm.DB {
		return m.db.WithContext(ctx).
			Model(&models.ResumeAnalysis{}).
			Where("target_job_id = ? AND processing_status = ?", targetJobID, constants.StatusAnalyzed)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计分析记录失败: %w", err)
	}

	var analyses []models.ResumeAnalysis
	err := query().
		Order("job_fit_score IS NULL").
		Order("job_fit_score desc").
		Order("ats_score desc").
		Order("submission_uuid asc").
		Offset(offset).
		Limit(limit).
		Find(&analyses).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询分析记录失败: %w", err)
	}
	return analyses, total, nil
}
