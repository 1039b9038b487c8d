package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"smarthire-ats/internal/api/handler"
	"smarthire-ats/internal/api/router"
	"smarthire-ats/internal/config"
	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/outbox"
	"smarthire-ats/internal/parser"
	"smarthire-ats/internal/processor"
	"smarthire-ats/internal/ratelimit"
	"smarthire-ats/internal/storage"
	"smarthire-ats/internal/tracing"
)

// 请求体上限在上传上限之外为 multipart 头部预留的空间
const multipartOverhead = 1 << 20

func main() {
	_ = godotenv.Load()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	initLogger(cfg.Logger)
	l := logger.Component("main")
	l.Info().Str("config", configPath).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		l.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	p, err := parser.Build(ctx, cfg)
	if err != nil {
		l.Fatal().Err(err).Msg("初始化解析器失败")
	}
	l.Info().Int("catalog_size", p.Catalog().Len()).Msg("解析器初始化成功")

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		l.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()

	var messageRelay *outbox.MessageRelay
	if storageManager.AsyncReady() {
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ)
		messageRelay.Start(ctx)
		l.Info().Msg("消息中继服务已启动")

		startWorker(ctx, cfg, p, storageManager)
	} else {
		l.Warn().Msg("MinIO/RabbitMQ/MySQL 未全部就绪，异步分析链路未启用")
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(int(cfg.Server.MaxUploadBytes)+multipartOverhead),
		server.WithReadTimeout(config.GetDuration(cfg.Server.RequestTimeout, 30*time.Second)),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	resumeHandler := handler.NewResumeHandler(cfg, p, handler.StorageOptions(storageManager)...)
	limiter := ratelimit.NewTokenBucket(cfg.Server.RateLimitQPM, cfg.Server.RateLimitBurst)
	router.RegisterRoutes(h, resumeHandler, cfg.Server.APIKeys, limiter)
	l.Info().
		Str("address", cfg.Server.Address).
		Bool("api_key_auth", len(cfg.Server.APIKeys) > 0).
		Int("rate_limit_qpm", cfg.Server.RateLimitQPM).
		Msg("HTTP 服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			l.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info().Msg("接收到终止信号，正在优雅退出...")

	// 先停止消费和中继，再关闭 HTTP
	cancel()
	if messageRelay != nil {
		messageRelay.Stop()
		l.Info().Msg("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("服务器关闭失败")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("关闭链路追踪失败")
	}
	l.Info().Msg("优雅退出完成")
}

// initLogger 初始化应用日志，并让 hertz 的 glog 通过适配器复用同一个 zerolog 实例
func initLogger(cfg config.LoggerConfig) {
	logger.Init(logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		TimeFormat:   cfg.TimeFormat,
		ReportCaller: cfg.ReportCaller,
	})

	glog.SetLogger(hertzadapter.From(logger.Logger))
	switch zerolog.GlobalLevel() {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		glog.SetLevel(glog.LevelDebug)
	case zerolog.WarnLevel:
		glog.SetLevel(glog.LevelWarn)
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		glog.SetLevel(glog.LevelError)
	default:
		glog.SetLevel(glog.LevelInfo)
	}
}

func startWorker(ctx context.Context, cfg *config.Config, p *parser.Parser, s *storage.Storage) {
	l := logger.Component("main")

	compOpts := append(processor.StorageComponents(s), processor.WithParser(p))
	svc, err := processor.NewAnalysisService(&cfg.RabbitMQ, compOpts,
		processor.WithLogger(logger.Component("processor")),
	)
	if err != nil {
		l.Fatal().Err(err).Msg("初始化分析服务失败")
	}
	worker, err := processor.NewWorker(svc, s.RabbitMQ)
	if err != nil {
		l.Fatal().Err(err).Msg("初始化分析消费者失败")
	}

	settings := svc.Settings()
	l.Info().
		Str("queue", settings.Queue).
		Int("workers", settings.Workers).
		Dur("message_timeout", settings.MessageTimeout).
		Msg("启动简历分析消费者")

	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			l.Error().Err(err).Msg("简历分析消费者异常退出")
		}
	}()
}
