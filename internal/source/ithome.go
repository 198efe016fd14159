package source

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	ithomeDefaultURL = "https://www.ithome.com/block/rank.html"
	ithomeMaxTitles  = 10
)

// ITHomeRankClient 抓取 IT之家日榜。榜单位于 ul#d-1 下的各 li a 标签
type ITHomeRankClient struct {
	BaseURL string
}

func NewITHomeRankClient() *ITHomeRankClient {
	return &ITHomeRankClient{BaseURL: ithomeDefaultURL}
}

func (i *ITHomeRankClient) Kind() Kind {
	return KindTechRank
}

func (i *ITHomeRankClient) Fetch(ctx context.Context) (*Snapshot, error) {
	log.Println("fetch ITHome daily rank...")

	c := newScrapeCollector(ctx, i.BaseURL)

	titles := make([]string, 0, ithomeMaxTitles)
	c.OnHTML("ul#d-1 li a", func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.Text)
		if title != "" {
			titles = append(titles, title)
		}
	})

	if err := c.Visit(i.BaseURL); err != nil {
		log.Printf("fetch ITHome rank failed: %v", err)
		return nil, Classify(err)
	}

	if len(titles) == 0 {
		return nil, NewParseError("rank container ul#d-1 not found or empty")
	}
	if len(titles) > ithomeMaxTitles {
		titles = titles[:ithomeMaxTitles]
	}

	return &Snapshot{
		Kind:      KindTechRank,
		FetchedAt: time.Now(),
		Rank: &RankList{
			Board:  "ithome",
			Titles: titles,
		},
	}, nil
}
