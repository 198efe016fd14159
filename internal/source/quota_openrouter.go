package source

import (
	"context"
	"fmt"
	"log"
	"time"

	"resty.dev/v3"
)

const openRouterDefaultBaseURL = "https://openrouter.ai"

// OpenRouterQuotaClient 查询 OpenRouter 账户用量与剩余额度
type OpenRouterQuotaClient struct {
	apiKey string
	client *resty.Client
}

func NewOpenRouterQuotaClient(apiKey, baseURL string) *OpenRouterQuotaClient {
	if baseURL == "" {
		baseURL = openRouterDefaultBaseURL
	}
	return &OpenRouterQuotaClient{
		apiKey: apiKey,
		client: newQuotaRestyClient(baseURL, apiKey),
	}
}

func (o *OpenRouterQuotaClient) Kind() Kind {
	return KindQuotaOpenRouter
}

type openRouterKeyResp struct {
	Data struct {
		Usage          float64  `json:"usage"`
		UsageDaily     float64  `json:"usage_daily"`
		LimitRemaining *float64 `json:"limit_remaining"`
	} `json:"data"`
}

func (o *OpenRouterQuotaClient) Fetch(ctx context.Context) (*Snapshot, error) {
	if o.apiKey == "" {
		return nil, NewAuthError("OpenRouter API key not configured")
	}

	log.Println("fetch OpenRouter quota...")

	var result openRouterKeyResp
	resp, err := o.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/api/v1/auth/key")
	if err != nil {
		return nil, Classify(err)
	}
	if !resp.IsSuccess() {
		return nil, quotaStatusError("OpenRouter", resp.StatusCode())
	}

	remaining := "No Limit"
	if result.Data.LimitRemaining != nil {
		remaining = fmt.Sprintf("$%.4f", *result.Data.LimitRemaining)
	}

	return &Snapshot{
		Kind:      KindQuotaOpenRouter,
		FetchedAt: time.Now(),
		AIQuota: &QuotaInfo{
			Provider: "OpenRouter",
			Balance:  remaining,
			Status:   "正常",
			Details: map[string]string{
				"今日用量": fmt.Sprintf("$%.4f", result.Data.UsageDaily),
				"累计用量": fmt.Sprintf("$%.4f", result.Data.Usage),
			},
		},
	}, nil
}
