package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"chart_interpreter/config"
	"chart_interpreter/history"
	"chart_interpreter/interpreter"
	"chart_interpreter/logging"
	"chart_interpreter/report"
	"chart_interpreter/server"
)

var verbose bool

func main() {
	configPath := flag.String("config", "config/config.json", "path to config.json")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	question := flag.String("q", "", "question to analyze")
	consultTime := flag.String("time", "", "reference time; empty means now")
	pillars := flag.String("pillars", "", "four pillars of the event")
	chartText := flag.String("chart-text", "", "event chart transcription")
	chartImage := flag.String("chart-image", "", "path to event chart screenshot")
	birthDate := flag.String("birth-date", "", "subject birth date")
	birthTime := flag.String("birth-time", "", "subject birth time (HH:mm)")
	birthPillars := flag.String("birth-pillars", "", "four pillars of the subject")
	birthChartText := flag.String("birth-chart-text", "", "subject chart transcription")
	birthChartImage := flag.String("birth-chart-image", "", "path to subject chart screenshot")
	htmlOut := flag.String("html", "", "write the report as HTML to this path")
	pdfOut := flag.String("pdf", "", "write the report as PDF to this path")
	flag.BoolVar(&verbose, "v", false, "enable debug logs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Verbose: verbose})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	llm, err := buildLLM(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	interp, err := interpreter.New(llm,
		interpreter.WithPersona(cfg.Persona),
		interpreter.WithThinkingBudget(cfg.LLM.ThinkingBudget),
		interpreter.WithLogger(log.Named("interpreter")))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	kv, closeKV, err := buildHistoryKV(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeKV()
	store := history.NewStore(kv, history.WithLogger(log.Named("history")))
	pdfOpts := report.PDFOptions{FontPath: cfg.Export.PDFFont, BoldFontPath: cfg.Export.PDFBoldFont}

	// Web server mode
	if *serve {
		srv, err := server.New(interp, store, server.Options{
			PDF:           pdfOpts,
			RatePerMinute: cfg.RateLimit.PerMinute,
			RateBurst:     cfg.RateLimit.Burst,
			Logger:        log.Named("server"),
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		if listen == "" {
			listen = ":8080"
		}
		log.Info("starting web server", zap.String("addr", listen), zap.String("provider", cfg.LLM.Provider))
		if err := http.ListenAndServe(listen, srv.Routes()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if *question == "" {
		fmt.Fprintln(os.Stderr, "-q is required (or use --serve)")
		os.Exit(1)
	}

	in := interpreter.UserInput{
		Question:          *question,
		IsNow:             *consultTime == "",
		ConsultationTime:  *consultTime,
		DivinationPillars: *pillars,
		BirthDate:         *birthDate,
		BirthTime:         *birthTime,
		BirthPillars:      *birthPillars,
		ChartText:         *chartText,
		BirthChartText:    *birthChartText,
	}
	if in.ChartImage, err = imageField(*chartImage); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if in.BirthChartImage, err = imageField(*birthChartImage); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log.Info("analyzing", zap.String("provider", cfg.LLM.Provider), zap.Bool("chart_image", in.ChartImage != ""), zap.Bool("birth_chart_image", in.BirthChartImage != ""))
	result, err := interp.Analyze(ctx, in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rec := store.Save(ctx, in, result)
	log.Debug("history saved", zap.String("id", rec.ID))

	now := time.Now()
	if *htmlOut != "" {
		if err := writeExport(*htmlOut, func(f *os.File) error { return report.ExportHTML(f, result, now) }); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *pdfOut != "" {
		if err := writeExport(*pdfOut, func(f *os.File) error { return report.ExportPDF(f, result, now, pdfOpts) }); err != nil {
			fmt.Fprintln(os.Stderr, "PDF 生成失敗：", err)
			os.Exit(1)
		}
	}
	fmt.Println(result)
}

func buildLLM(cfg config.Config) (interpreter.LLMClient, error) {
	if cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("%w: llm config missing; please set llm.provider/model/api_key in config", interpreter.ErrConfig)
	}
	settings := &interpreter.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	}
	switch cfg.LLM.Provider {
	case "gemini":
		return interpreter.NewGeminiLLMFromConfig(settings)
	case "openai":
		return interpreter.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("%w: llm provider deepseek requires base_url (OpenAI-compatible endpoint)", interpreter.ErrConfig)
		}
		return interpreter.NewOpenAILLMFromConfig(settings)
	case "mock":
		return interpreter.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("%w: llm provider %s not supported", interpreter.ErrConfig, cfg.LLM.Provider)
	}
}

func buildHistoryKV(ctx context.Context, cfg config.Config) (history.KV, func(), error) {
	switch cfg.History.Backend {
	case "memory":
		return history.NewMemoryKV(cfg.History.MaxBytes), func() {}, nil
	case "sqlite", "":
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
			return nil, nil, err
		}
		kv, err := history.OpenSQLite(ctx, cfg.History.Path, cfg.History.MaxBytes)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("history backend %s not supported", cfg.History.Backend)
	}
}

func imageField(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return interpreter.FileToDataURI(path)
}

func writeExport(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
