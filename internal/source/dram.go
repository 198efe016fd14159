package source

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	dramDefaultURL = "https://www.dramx.com/Price/DSD.html"
	dramMaxRows    = 6
)

// DRAMPriceClient 抓取 DRAMeXchange 内存现货报价。
// 表格位于 #price1 下的 table.price-table：第0列产品名，第3列均价，
// 第4列涨跌幅（涨跌方向由单元格内箭头图片的 src 判断）
type DRAMPriceClient struct {
	BaseURL string
}

func NewDRAMPriceClient() *DRAMPriceClient {
	return &DRAMPriceClient{BaseURL: dramDefaultURL}
}

func (d *DRAMPriceClient) Kind() Kind {
	return KindHardware
}

func (d *DRAMPriceClient) Fetch(ctx context.Context) (*Snapshot, error) {
	log.Println("fetch DRAM spot price...")

	c := newScrapeCollector(ctx, d.BaseURL)

	rows := make([]PriceRow, 0, dramMaxRows)
	c.OnHTML("#price1 table.price-table tr", func(e *colly.HTMLElement) {
		if len(rows) >= dramMaxRows {
			return
		}
		row, ok := parseDRAMRow(e.DOM)
		if ok {
			rows = append(rows, row)
		}
	})

	if err := c.Visit(d.BaseURL); err != nil {
		log.Printf("fetch DRAM price failed: %v", err)
		return nil, Classify(err)
	}

	if len(rows) == 0 {
		return nil, NewParseError("price table #price1 not found, page layout may have changed")
	}

	return &Snapshot{
		Kind:      KindHardware,
		FetchedAt: time.Now(),
		Hardware:  &PriceTable{Rows: rows},
	}, nil
}

// parseDRAMRow 解析一行报价；表头行（td 不足 5 列）返回 false
func parseDRAMRow(tr *goquery.Selection) (PriceRow, bool) {
	cells := tr.Find("td")
	if cells.Length() < 5 {
		return PriceRow{}, false
	}

	name := strings.TrimSpace(cells.Eq(0).Text())
	price := strings.TrimSpace(cells.Eq(3).Text())
	if name == "" || price == "" {
		return PriceRow{}, false
	}

	changeCell := cells.Eq(4)
	change := signedChange(changeCell)

	return PriceRow{Name: name, Price: price, Change: change}, true
}

// signedChange 给涨跌幅补上符号：单元格内箭头图片 src 含 up 记为上涨，含 down 记为下跌，平盘不加符号
func signedChange(cell *goquery.Selection) string {
	change := strings.TrimSpace(cell.Text())
	src, _ := cell.Find("img").Attr("src")
	switch {
	case strings.Contains(src, "up"):
		return "+" + change
	case strings.Contains(src, "down"):
		return "-" + change
	default:
		return change
	}
}
