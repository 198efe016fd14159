package source

import (
	"context"
	"fmt"
	"log"
	"time"

	"resty.dev/v3"
)

const hotlistDefaultBaseURL = "http://api-v2.yuafeng.cn"

// HotlistClient 通过聚合热榜 API 获取某个榜单（微博热榜 / 今日头条热榜）。
// 同一个接口按 action 参数区分榜单，一个实例对应一个榜单
type HotlistClient struct {
	kind   Kind
	board  string
	action string
	apiKey string
	client *resty.Client
}

// NewWeiboHotClient 微博热榜
func NewWeiboHotClient(apiKey, baseURL string) *HotlistClient {
	return newHotlistClient(KindHotWeibo, "weibo", "微博热榜", apiKey, baseURL)
}

// NewToutiaoHotClient 今日头条热榜
func NewToutiaoHotClient(apiKey, baseURL string) *HotlistClient {
	return newHotlistClient(KindHotToutiao, "toutiao", "今日头条热榜", apiKey, baseURL)
}

func newHotlistClient(kind Kind, board, action, apiKey, baseURL string) *HotlistClient {
	if baseURL == "" {
		baseURL = hotlistDefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	return &HotlistClient{
		kind:   kind,
		board:  board,
		action: action,
		apiKey: apiKey,
		client: client,
	}
}

func (h *HotlistClient) Kind() Kind {
	return h.kind
}

type hotlistResp struct {
	Code int `json:"code"`
	Data []struct {
		Title string `json:"title"`
	} `json:"data"`
}

func (h *HotlistClient) Fetch(ctx context.Context) (*Snapshot, error) {
	if h.apiKey == "" {
		return nil, NewAuthError("hotlist API key not configured")
	}

	log.Printf("fetch hotlist %s...", h.board)

	var result hotlistResp
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey": h.apiKey,
			"action": h.action,
			"page":   "1",
		}).
		SetResult(&result).
		Get("/API/jinri_hot.php")
	if err != nil {
		return nil, Classify(err)
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, NewAuthError(fmt.Sprintf("hotlist API rejected key (status %d)", resp.StatusCode()))
	}
	if !resp.IsSuccess() {
		return nil, NewParseError(fmt.Sprintf("unexpected status %d", resp.StatusCode()))
	}
	if len(result.Data) == 0 {
		return nil, NewParseError("hotlist response has no entries")
	}

	titles := make([]string, 0, len(result.Data))
	for _, item := range result.Data {
		if item.Title != "" {
			titles = append(titles, item.Title)
		}
	}
	if len(titles) == 0 {
		return nil, NewParseError("hotlist entries have no titles")
	}

	return &Snapshot{
		Kind:      h.kind,
		FetchedAt: time.Now(),
		Rank: &RankList{
			Board:  h.board,
			Titles: titles,
		},
	}, nil
}
