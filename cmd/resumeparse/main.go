package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/parser"
	"smarthire-ats/internal/types"
)

// output CLI 输出结构，字段名与 HTTP 接口保持一致
type output struct {
	Record      *types.ResumeRecord `json:"record"`
	JobFit      *types.JobFitResult `json:"job_fit,omitempty"`
	Diagnostics types.Diagnostics   `json:"diagnostics"`
}

func main() {
	_ = godotenv.Load()

	var (
		configPath string
		filePath   string
		jd         string
		jdFile     string
		jobTitle   string
		pretty     bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.StringVarP(&filePath, "file", "f", "", "Resume file (PDF, DOCX or plain text)")
	pflag.StringVar(&jd, "jd", "", "Job description text")
	pflag.StringVar(&jdFile, "jd-file", "", "Read the job description from a file")
	pflag.StringVarP(&jobTitle, "title", "t", "", "Job title used for job-fit scoring")
	pflag.BoolVar(&pretty, "pretty", false, "Indent JSON output")
	pflag.Parse()

	if filePath == "" {
		fmt.Fprintln(os.Stderr, "用法: resumeparse --file resume.pdf [--jd TEXT | --jd-file FILE] [--title TITLE]")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	// 日志写到 stderr，stdout 只输出 JSON
	logger.InitWithWriter(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	}, os.Stderr)

	if jdFile != "" {
		data, err := os.ReadFile(filepath.Clean(jdFile))
		if err != nil {
			logger.Fatal().Err(err).Str("jd_file", jdFile).Msg("读取职位描述失败")
		}
		jd = string(data)
	}

	ctx := context.Background()
	p, err := parser.Build(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化解析器失败")
	}

	record, diags := p.ParseFile(ctx, filePath, jd)
	out := output{Record: record, Diagnostics: diags}
	if out.Diagnostics == nil {
		out.Diagnostics = types.Diagnostics{}
	}
	if jobTitle != "" || jd != "" {
		out.JobFit = p.JobFit(record, jobTitle, jd)
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		logger.Fatal().Err(err).Msg("输出结果失败")
	}
}
