package source

import (
	"context"
	"fmt"
	"log"
	"time"

	"resty.dev/v3"
)

const moonshotDefaultBaseURL = "https://api.moonshot.cn"

// MoonshotQuotaClient 查询 Moonshot (Kimi) 账户可用余额
type MoonshotQuotaClient struct {
	apiKey string
	client *resty.Client
}

func NewMoonshotQuotaClient(apiKey, baseURL string) *MoonshotQuotaClient {
	if baseURL == "" {
		baseURL = moonshotDefaultBaseURL
	}
	return &MoonshotQuotaClient{
		apiKey: apiKey,
		client: newQuotaRestyClient(baseURL, apiKey),
	}
}

func (m *MoonshotQuotaClient) Kind() Kind {
	return KindQuotaMoonshot
}

type moonshotBalanceResp struct {
	Status bool `json:"status"`
	Data   struct {
		AvailableBalance float64 `json:"available_balance"`
	} `json:"data"`
}

func (m *MoonshotQuotaClient) Fetch(ctx context.Context) (*Snapshot, error) {
	if m.apiKey == "" {
		return nil, NewAuthError("Moonshot API key not configured")
	}

	log.Println("fetch Moonshot balance...")

	var result moonshotBalanceResp
	resp, err := m.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/v1/users/me/balance")
	if err != nil {
		return nil, Classify(err)
	}
	if !resp.IsSuccess() {
		return nil, quotaStatusError("Moonshot", resp.StatusCode())
	}

	status := "正常"
	if !result.Status {
		status = "已停用"
	}

	return &Snapshot{
		Kind:      KindQuotaMoonshot,
		FetchedAt: time.Now(),
		AIQuota: &QuotaInfo{
			Provider: "Moonshot",
			Balance:  fmt.Sprintf("¥%.2f", result.Data.AvailableBalance),
			Status:   status,
		},
	}, nil
}
