package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/aerokb/rag-backend/internal/conf"
	"github.com/aerokb/rag-backend/internal/knowledge/engine"
	"github.com/aerokb/rag-backend/internal/knowledge/types"
	"github.com/aerokb/rag-backend/internal/pkg/logger"
)

var (
	configFile = flag.String("config", "", "config file path (optional)")
	preset     = flag.String("preset", "", "chunking preset name, empty for auto selection")
	docType    = flag.String("type", "", "declared document type")
	title      = flag.String("title", "", "document title used for preset selection")
	validate   = flag.Bool("validate", false, "print a validation report instead of chunks")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: chunker [flags] <file>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := conf.DefaultConfig()
	if *configFile != "" {
		loaded, err := conf.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := logger.InitGlobal(&logger.Config{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		Output:           cfg.Log.Output,
		EnableCaller:     cfg.Log.EnableCaller,
		EnableStacktrace: cfg.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   cfg.Log.File.Filename,
			MaxSize:    cfg.Log.File.MaxSize,
			MaxAge:     cfg.Log.File.MaxAge,
			MaxBackups: cfg.Log.File.MaxBackups,
			Compress:   cfg.Log.File.Compress,
		},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("读取文件失败", zap.String("path", path), zap.Error(err))
	}

	eng, err := engine.New(engine.Options{
		Presets:       engine.PresetsFromConfig(cfg.Chunking),
		DefaultPreset: cfg.Chunking.DefaultPreset,
	})
	if err != nil {
		logger.Fatal("创建分块引擎失败", zap.Error(err))
	}

	res, err := eng.ChunkDocument(context.Background(), engine.Request{
		Text: string(data),
		Doc: types.DocumentInfo{
			FileName:     path,
			DocumentType: *docType,
			Title:        *title,
		},
		Preset: *preset,
	})
	if err != nil {
		logger.Fatal("分块失败", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *validate {
		p, _ := eng.ResolvePreset(res.Preset)
		report := engine.ValidateChunks(res.Chunks, p.Splitter.MinChunkSize, p.Splitter.MaxChunkSize)
		if err := enc.Encode(report); err != nil {
			logger.Fatal("输出报告失败", zap.Error(err))
		}
		return
	}

	if err := enc.Encode(res); err != nil {
		logger.Fatal("输出结果失败", zap.Error(err))
	}
}
