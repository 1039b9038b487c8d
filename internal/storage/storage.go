package storage

import (
	"context"
	"fmt"
	"strings"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖。未配置或初始化失败的组件为 nil。
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis
}

// NewStorage 创建存储管理器。
// 单个组件初始化失败只记录警告；所有已配置的组件都失败时返回错误。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	l := logger.Component("storage")
	storage := &Storage{}
	var err error
	var initErrors []string
	configured := 0

	if cfg.MinIO.Enabled() {
		configured++
		storage.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			l.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.Enabled() {
		configured++
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err == nil {
			err = storage.RabbitMQ.SetupResumeTopology()
		}
		if err != nil {
			l.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
			if storage.RabbitMQ != nil {
				_ = storage.RabbitMQ.Close()
				storage.RabbitMQ = nil
			}
		}
	}

	if cfg.MySQL.Enabled() {
		configured++
		storage.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			l.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Enabled() {
		configured++
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			l.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		l.Info().Msg("Redis未配置, 跳过初始化")
	}

	if configured > 0 && len(initErrors) == configured {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		l.Warn().Str("failed", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}

	l.Info().
		Bool("minio", storage.MinIO != nil).
		Bool("rabbitmq", storage.RabbitMQ != nil).
		Bool("mysql", storage.MySQL != nil).
		Bool("redis", storage.Redis != nil).
		Msg("存储组件初始化完成")
	return storage, nil
}

// AsyncReady 异步分析链路所需的组件是否齐全
func (s *Storage) AsyncReady() bool {
	return s != nil && s.MinIO != nil && s.RabbitMQ != nil && s.MySQL != nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	l := logger.Component("storage")

	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			l.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}

	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			l.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			l.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
