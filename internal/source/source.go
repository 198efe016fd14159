package source

import (
	"context"
	"time"
)

// Kind 标识一个数据源，ReportContext 按 Kind 做唯一键
type Kind string

const (
	KindNews     Kind = "news"     // 60秒读懂世界
	KindTechRank Kind = "techrank" // IT之家热榜
	KindHardware Kind = "hardware" // 内存现货价格
	KindAnime    Kind = "anime"    // 今日番剧
	KindFXRate   Kind = "fxrate"   // 人民币汇率

	KindHotWeibo   Kind = "hotlist:weibo"
	KindHotToutiao Kind = "hotlist:toutiao"

	KindQuotaOpenRouter  Kind = "aiquota:openrouter"
	KindQuotaDeepSeek    Kind = "aiquota:deepseek"
	KindQuotaMoonshot    Kind = "aiquota:moonshot"
	KindQuotaSiliconFlow Kind = "aiquota:siliconflow"
)

// Snapshot 一次采集得到的数据快照：按 Kind 只填充对应的变体字段，构造后不再修改
type Snapshot struct {
	Kind      Kind
	FetchedAt time.Time

	News     *NewsDigest
	Rank     *RankList
	Hardware *PriceTable
	Anime    *AnimeCalendar
	FXRate   *RateTable
	AIQuota  *QuotaInfo
}

// NewsDigest 每日新闻摘要（60s API）
type NewsDigest struct {
	Date      string
	Headlines []string
}

// RankList 榜单类数据：IT之家热榜、微博/头条热榜共用
type RankList struct {
	Board  string
	Titles []string
}

// PriceTable 硬件价格表（DRAM 现货）
type PriceTable struct {
	Rows []PriceRow
}

type PriceRow struct {
	Name   string
	Price  string
	Change string // 带符号的涨跌幅，如 +0.12 / -0.34
}

// AnimeCalendar 当天更新的番剧列表
type AnimeCalendar struct {
	Weekday string
	Entries []AnimeEntry
}

type AnimeEntry struct {
	Title string
	Cover string
}

// RateTable 以 Base 为基准的汇率表，AsOf 为接口返回的数据时间
type RateTable struct {
	Base  string
	Rates map[string]string
	AsOf  time.Time
}

// QuotaInfo AI 服务账户余额信息
type QuotaInfo struct {
	Provider string
	Balance  string
	Status   string
	// Details 附加字段（如 OpenRouter 的当日用量），模板按 key 排序展示
	Details map[string]string
}

// Failure 记录一次采集失败：来源、错误类别、信息与时间
type Failure struct {
	Kind    Kind
	ErrKind ErrKind
	Message string
	At      time.Time
}

// Outcome 一个源在一轮中的结果：Snapshot 与 Failure 恰有一个非 nil。
// 零值 Outcome 视为失败，模板侧直接走占位分支
type Outcome struct {
	Kind     Kind
	Snapshot *Snapshot
	Failure  *Failure
}

func (o Outcome) OK() bool {
	return o.Failure == nil && o.Snapshot != nil
}

// FailureMessage 失败描述文案，成功或零值时返回空串
func (o Outcome) FailureMessage() string {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Message
}

// Client 抽象每一个数据源：返回快照或带类别的错误，超时由 ctx 控制，内部不做重试
type Client interface {
	Kind() Kind
	Fetch(ctx context.Context) (*Snapshot, error)
}
