package processor

import (
	"time"

	"github.com/rs/zerolog"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/logger"
)

// Components 分析服务依赖的外部组件
type Components struct {
	Parser  ResumeParser
	Fetcher ResumeFetcher
	Writer  AnalysisWriter
	Cache   ResultCache // 可选
}

// Settings 分析服务与消费者的运行参数
type Settings struct {
	Exchange       string
	RoutingKey     string // 分析完成事件的路由键
	Queue          string
	PrefetchCount  int
	Workers        int
	MessageTimeout time.Duration
	Logger         zerolog.Logger
}

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// defaultSettings 从配置生成默认设置
func defaultSettings(cfg *config.RabbitMQConfig) Settings {
	s := Settings{
		Workers:        1,
		PrefetchCount:  1,
		MessageTimeout: time.Minute,
		Logger:         logger.Component("processor"),
	}
	if cfg == nil {
		return s
	}
	s.Exchange = cfg.ResumeEventsExchange
	s.RoutingKey = cfg.AnalyzedRoutingKey
	s.Queue = cfg.UploadQueue
	if cfg.PrefetchCount > 0 {
		s.PrefetchCount = cfg.PrefetchCount
	}
	if cfg.ConsumerWorkers > 0 {
		s.Workers = cfg.ConsumerWorkers
	}
	s.MessageTimeout = config.GetDuration(cfg.MessageTimeout, s.MessageTimeout)
	return s
}

// ----- 组件选项 -----

// WithParser 设置简历解析器
func WithParser(p ResumeParser) ComponentOpt {
	return func(c *Components) {
		c.Parser = p
	}
}

// WithFetcher 设置原始文件读取组件
func WithFetcher(f ResumeFetcher) ComponentOpt {
	return func(c *Components) {
		c.Fetcher = f
	}
}

// WithWriter 设置分析结果持久化组件
func WithWriter(w AnalysisWriter) ComponentOpt {
	return func(c *Components) {
		c.Writer = w
	}
}

// WithCache 设置结果缓存
func WithCache(cache ResultCache) ComponentOpt {
	return func(c *Components) {
		c.Cache = cache
	}
}

// ----- 设置选项 -----

// WithWorkers 设置并发消费者数量
func WithWorkers(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.Workers = n
		}
	}
}

// WithMessageTimeout 设置单条消息的处理超时
func WithMessageTimeout(d time.Duration) SettingOpt {
	return func(s *Settings) {
		if d > 0 {
			s.MessageTimeout = d
		}
	}
}

// WithQueue 设置消费的队列和预取数量
func WithQueue(queue string, prefetch int) SettingOpt {
	return func(s *Settings) {
		s.Queue = queue
		if prefetch > 0 {
			s.PrefetchCount = prefetch
		}
	}
}

// WithEventTarget 设置分析完成事件的交换机和路由键
func WithEventTarget(exchange, routingKey string) SettingOpt {
	return func(s *Settings) {
		s.Exchange = exchange
		s.RoutingKey = routingKey
	}
}

// WithLogger 设置日志记录器
func WithLogger(l zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = l
	}
}
