package source

import (
	"context"
	"log"
	"time"

	"resty.dev/v3"
)

const siliconFlowDefaultBaseURL = "https://api.siliconflow.cn"

// SiliconFlowQuotaClient 查询硅基流动账户余额
type SiliconFlowQuotaClient struct {
	apiKey string
	client *resty.Client
}

func NewSiliconFlowQuotaClient(apiKey, baseURL string) *SiliconFlowQuotaClient {
	if baseURL == "" {
		baseURL = siliconFlowDefaultBaseURL
	}
	return &SiliconFlowQuotaClient{
		apiKey: apiKey,
		client: newQuotaRestyClient(baseURL, apiKey),
	}
}

func (s *SiliconFlowQuotaClient) Kind() Kind {
	return KindQuotaSiliconFlow
}

type siliconFlowUserResp struct {
	Data struct {
		Balance string `json:"balance"`
	} `json:"data"`
}

func (s *SiliconFlowQuotaClient) Fetch(ctx context.Context) (*Snapshot, error) {
	if s.apiKey == "" {
		return nil, NewAuthError("SiliconFlow API key not configured")
	}

	log.Println("fetch SiliconFlow balance...")

	var result siliconFlowUserResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/v1/user/info")
	if err != nil {
		return nil, Classify(err)
	}
	if !resp.IsSuccess() {
		return nil, quotaStatusError("SiliconFlow", resp.StatusCode())
	}
	if result.Data.Balance == "" {
		return nil, NewParseError("SiliconFlow response has no balance field")
	}

	return &Snapshot{
		Kind:      KindQuotaSiliconFlow,
		FetchedAt: time.Now(),
		AIQuota: &QuotaInfo{
			Provider: "SiliconFlow",
			Balance:  "¥" + result.Data.Balance,
			Status:   "正常",
		},
	}, nil
}
