package source

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	bangumiDefaultURL   = "https://bgm.tv/calendar"
	bangumiDefaultCover = "https://bgm.tv/img/no_icon_subject.png"
)

// Bangumi 页面按星期的英文简写组织每天的条目
var bangumiWeekdayClass = map[time.Weekday]string{
	time.Monday:    "Mon",
	time.Tuesday:   "Tue",
	time.Wednesday: "Wed",
	time.Thursday:  "Thu",
	time.Friday:    "Fri",
	time.Saturday:  "Sat",
	time.Sunday:    "Sun",
}

var coverURLPattern = regexp.MustCompile(`url\('?(.*?)'?\)`)

// BangumiClient 抓取 Bangumi 每日放送中“今天”的番剧列表。
// 条目位于 dd.<Mon..Sun> 下的各 li：标题取 a 文本，封面从行内
// background-image 样式中提取
type BangumiClient struct {
	BaseURL string
	// Now 取当前时间，测试可注入固定时间
	Now func() time.Time
}

func NewBangumiClient() *BangumiClient {
	return &BangumiClient{BaseURL: bangumiDefaultURL, Now: time.Now}
}

func (b *BangumiClient) Kind() Kind {
	return KindAnime
}

func (b *BangumiClient) Fetch(ctx context.Context) (*Snapshot, error) {
	log.Println("fetch Bangumi calendar...")

	weekday := bangumiWeekdayClass[b.Now().Weekday()]

	c := newScrapeCollector(ctx, b.BaseURL)

	entries := make([]AnimeEntry, 0, 16)
	c.OnHTML("dd."+weekday+" li", func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText("a"))
		if title == "" {
			title = "未知"
		}
		entries = append(entries, AnimeEntry{
			Title: title,
			Cover: coverFromStyle(e.Attr("style")),
		})
	})

	if err := c.Visit(b.BaseURL); err != nil {
		log.Printf("fetch Bangumi calendar failed: %v", err)
		return nil, Classify(err)
	}

	if len(entries) == 0 {
		return nil, NewParseError("no entries under dd." + weekday + ", page layout may have changed")
	}

	return &Snapshot{
		Kind:      KindAnime,
		FetchedAt: time.Now(),
		Anime: &AnimeCalendar{
			Weekday: weekday,
			Entries: entries,
		},
	}, nil
}

// coverFromStyle 从行内样式 background-image: url('//lain.bgm.tv/...') 提取封面地址，
// 协议相对地址补全为 https，提取失败用默认封面
func coverFromStyle(style string) string {
	m := coverURLPattern.FindStringSubmatch(style)
	if m == nil || m[1] == "" {
		return bangumiDefaultCover
	}
	raw := m[1]
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + strings.TrimLeft(raw, "/")
}
