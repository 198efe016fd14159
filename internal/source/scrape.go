package source

import (
	"context"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const defaultScrapeTimeout = 10 * time.Second

// newScrapeCollector 按页面地址构造 colly 采集器：域名白名单取自目标地址本身，
// 超时优先取 ctx 的剩余时间，便于聚合层用 ctx 统一控制
func newScrapeCollector(ctx context.Context, pageURL string) *colly.Collector {
	opts := []colly.CollectorOption{
		colly.UserAgent(scrapeUserAgent),
	}
	if host := hostOf(pageURL); host != "" {
		opts = append(opts, colly.AllowedDomains(host))
	}

	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(scrapeTimeout(ctx))
	return c
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func scrapeTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			return d
		}
	}
	return defaultScrapeTimeout
}
