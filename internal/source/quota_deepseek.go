package source

import (
	"context"
	"log"
	"time"

	"resty.dev/v3"
)

const deepSeekDefaultBaseURL = "https://api.deepseek.com"

// DeepSeekQuotaClient 查询 DeepSeek 账户余额
type DeepSeekQuotaClient struct {
	apiKey string
	client *resty.Client
}

func NewDeepSeekQuotaClient(apiKey, baseURL string) *DeepSeekQuotaClient {
	if baseURL == "" {
		baseURL = deepSeekDefaultBaseURL
	}
	return &DeepSeekQuotaClient{
		apiKey: apiKey,
		client: newQuotaRestyClient(baseURL, apiKey),
	}
}

func (d *DeepSeekQuotaClient) Kind() Kind {
	return KindQuotaDeepSeek
}

type deepSeekBalanceResp struct {
	IsAvailable  bool `json:"is_available"`
	BalanceInfos []struct {
		Currency     string `json:"currency"`
		TotalBalance string `json:"total_balance"`
	} `json:"balance_infos"`
}

func (d *DeepSeekQuotaClient) Fetch(ctx context.Context) (*Snapshot, error) {
	if d.apiKey == "" {
		return nil, NewAuthError("DeepSeek API key not configured")
	}

	log.Println("fetch DeepSeek balance...")

	var result deepSeekBalanceResp
	resp, err := d.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/user/balance")
	if err != nil {
		return nil, Classify(err)
	}
	if !resp.IsSuccess() {
		return nil, quotaStatusError("DeepSeek", resp.StatusCode())
	}
	if len(result.BalanceInfos) == 0 {
		return nil, NewParseError("DeepSeek response has no balance_infos")
	}

	info := result.BalanceInfos[0]
	status := "正常"
	if !result.IsAvailable {
		status = "已停用"
	}

	return &Snapshot{
		Kind:      KindQuotaDeepSeek,
		FetchedAt: time.Now(),
		AIQuota: &QuotaInfo{
			Provider: "DeepSeek",
			Balance:  info.TotalBalance + " " + info.Currency,
			Status:   status,
		},
	}, nil
}
