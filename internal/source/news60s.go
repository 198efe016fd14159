package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	news60sDefaultURL       = "https://60s-api.viki.moe/v2/60s"
	news60sMaxResponseBytes = 512 * 1024
	news60sMaxHeadlines     = 15
)

// News60sClient 获取“60秒读懂世界”每日新闻摘要（JSON API）
type News60sClient struct {
	BaseURL string
	client  *http.Client
}

func NewNews60sClient() *News60sClient {
	return &News60sClient{
		BaseURL: news60sDefaultURL,
		client:  &http.Client{},
	}
}

func (n *News60sClient) Kind() Kind {
	return KindNews
}

type news60sResp struct {
	Code int `json:"code"`
	Data struct {
		Date string   `json:"date"`
		News []string `json:"news"`
	} `json:"data"`
}

func (n *News60sClient) Fetch(ctx context.Context) (*Snapshot, error) {
	log.Println("fetch 60s news digest...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL, nil)
	if err != nil {
		return nil, NewNetworkError(err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewParseError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, news60sMaxResponseBytes))
	if err != nil {
		return nil, Classify(err)
	}

	var payload news60sResp
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, NewParseError("malformed 60s response: " + err.Error())
	}
	if len(payload.Data.News) == 0 {
		return nil, NewParseError("60s response has no news entries")
	}

	headlines := payload.Data.News
	if len(headlines) > news60sMaxHeadlines {
		headlines = headlines[:news60sMaxHeadlines]
	}

	return &Snapshot{
		Kind:      KindNews,
		FetchedAt: time.Now(),
		News: &NewsDigest{
			Date:      payload.Data.Date,
			Headlines: headlines,
		},
	}, nil
}
