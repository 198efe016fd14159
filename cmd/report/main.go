package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/LJTian/DailyBrief/internal/aggregator"
	"github.com/LJTian/DailyBrief/internal/config"
	"github.com/LJTian/DailyBrief/internal/renderer"
	"github.com/LJTian/DailyBrief/internal/source"
)

// 只跑一轮“聚合 + 渲染”的命令行入口：不依赖数据库与 bot 宿主，
// 适合本地调试模板与各数据源
func main() {
	out := flag.String("o", "report.png", "output path for the rendered report image")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	r, err := renderer.New(cfg.TemplatePath)
	if err != nil {
		log.Fatalf("init renderer failed: %v", err)
	}

	clients := []source.Client{
		source.NewNews60sClient(),
		source.NewITHomeRankClient(),
		source.NewDRAMPriceClient(),
		source.NewBangumiClient(),
		source.NewFXRateClient(cfg.ExchangeRateKey, ""),
		source.NewWeiboHotClient(cfg.YuafengKey, ""),
		source.NewToutiaoHotClient(cfg.YuafengKey, ""),
		source.NewOpenRouterQuotaClient(cfg.OpenRouterKey, ""),
		source.NewDeepSeekQuotaClient(cfg.DeepSeekKey, ""),
		source.NewMoonshotQuotaClient(cfg.MoonshotKey, ""),
		source.NewSiliconFlowQuotaClient(cfg.SiliconFlowKey, ""),
	}

	ctx := context.Background()
	rc := aggregator.Run(ctx, clients, aggregator.Options{
		PerSourceTimeout: cfg.PerSourceTimeout,
		OverallDeadline:  cfg.OverallDeadline,
	})
	log.Printf("aggregation done: %d/%d sources ok", rc.SucceededCount(), len(rc.Outcomes))

	rep, err := r.Render(ctx, rc)
	if err != nil {
		log.Fatalf("render report failed: %v", err)
	}

	if err := os.WriteFile(*out, rep.PNG, 0o644); err != nil {
		log.Fatalf("write %s failed: %v", *out, err)
	}
	log.Printf("report written to %s (%d bytes)", *out, len(rep.PNG))
}
