package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/DailyBrief/internal/aggregator"
	"github.com/LJTian/DailyBrief/internal/api"
	"github.com/LJTian/DailyBrief/internal/config"
	"github.com/LJTian/DailyBrief/internal/dispatcher"
	"github.com/LJTian/DailyBrief/internal/renderer"
	"github.com/LJTian/DailyBrief/internal/scheduler"
	"github.com/LJTian/DailyBrief/internal/source"
	"github.com/LJTian/DailyBrief/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	r, err := renderer.New(cfg.TemplatePath)
	if err != nil {
		log.Fatalf("init renderer failed: %v", err)
	}

	// 凭证缺失的源保留在列表里：它们会以鉴权失败的占位块出现在简报中，
	// 提醒使用者补配置，而不是悄悄消失
	clients := buildClients(cfg)

	var broadcaster scheduler.Broadcaster
	if cfg.WebhookBaseURL != "" && len(cfg.TargetGroups) > 0 {
		sender := dispatcher.NewWebhookSender(cfg.WebhookBaseURL, cfg.WebhookToken)
		broadcaster = dispatcher.New(sender, cfg.TargetGroups)
	} else {
		log.Println("webhook not configured, reports will only be cached, not sent")
	}

	pipeline := scheduler.NewPipeline(clients, r, broadcaster, store, aggregator.Options{
		PerSourceTimeout: cfg.PerSourceTimeout,
		OverallDeadline:  cfg.OverallDeadline,
	})

	s, err := scheduler.New(cfg.SendTime, pipeline)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	// API
	engine := gin.Default()
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		engine.Use(api.BasicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(store, pipeline)
	apiServer.RegisterRoutes(engine)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

func buildClients(cfg *config.Config) []source.Client {
	return []source.Client{
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
}
