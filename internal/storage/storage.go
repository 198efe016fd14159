// Package storage 记录每轮简报的运行情况（审计用），并用 Redis 缓存
// 最近一张简报图片供 API 直接返回。存储只做旁路观测：
// 任何存取失败都不允许阻断简报的生成与发送。
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LJTian/DailyBrief/internal/report"
	"github.com/LJTian/DailyBrief/internal/source"
)

// 运行状态
const (
	RunStatusOK           = "ok"
	RunStatusRenderFailed = "render_failed"
	RunStatusSendFailed   = "send_failed"
)

const (
	latestPNGKey = "report:latest:png"
	latestAtKey  = "report:latest:at"
	// 覆盖到次日定时任务之后，保证两轮之间始终有图可查
	latestTTL = 26 * time.Hour

	runListCacheTTL = 5 * time.Minute
)

// ReportRun 一轮简报的运行记录
type ReportRun struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StartedAt  time.Time `gorm:"index" json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     string    `gorm:"size:32;index" json:"status"`
	Error      string    `gorm:"size:600" json:"error"`
	Succeeded  int       `json:"succeeded"`
	Total      int       `json:"total"`
	PNGBytes   int       `json:"pngBytes"`

	CreatedAt time.Time `json:"createdAt"`
}

// SourceStatus 一轮中单个源的结果
type SourceStatus struct {
	ID      uint              `gorm:"primaryKey" json:"id"`
	RunID   uint              `gorm:"index" json:"runId"`
	Kind    string            `gorm:"size:64;index" json:"kind"`
	OK      bool              `json:"ok"`
	ErrKind string            `gorm:"size:16" json:"errKind"`
	Message string            `gorm:"size:600" json:"message"`
	Extra   datatypes.JSONMap `gorm:"type:jsonb" json:"extra"`

	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&ReportRun{}, &SourceStatus{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// SaveRun 落一轮运行记录及各源状态
func (s *Store) SaveRun(run *ReportRun, rc *report.Context) error {
	run.Error = truncateRunesDB(toValidUTF8(run.Error), 600)
	if err := s.DB.Create(run).Error; err != nil {
		return err
	}

	for _, out := range rc.Outcomes {
		st := outcomeStatus(run.ID, out)
		if err := s.DB.Create(&st).Error; err != nil {
			return err
		}
	}
	return nil
}

func outcomeStatus(runID uint, out source.Outcome) SourceStatus {
	st := SourceStatus{
		RunID: runID,
		Kind:  string(out.Kind),
		OK:    out.OK(),
	}
	if out.Failure != nil {
		st.ErrKind = string(out.Failure.ErrKind)
		st.Message = truncateRunesDB(toValidUTF8(out.Failure.Message), 600)
	}
	if out.Snapshot != nil {
		st.Extra = snapshotExtra(out.Snapshot)
	}
	return st
}

// snapshotExtra 提炼少量可观测字段入库，不存完整快照
func snapshotExtra(snap *source.Snapshot) datatypes.JSONMap {
	extra := datatypes.JSONMap{}
	switch {
	case snap.News != nil:
		extra["headlines"] = len(snap.News.Headlines)
	case snap.Rank != nil:
		extra["board"] = snap.Rank.Board
		extra["titles"] = len(snap.Rank.Titles)
	case snap.Hardware != nil:
		extra["rows"] = len(snap.Hardware.Rows)
	case snap.Anime != nil:
		extra["entries"] = len(snap.Anime.Entries)
	case snap.FXRate != nil:
		extra["rates"] = len(snap.FXRate.Rates)
	case snap.AIQuota != nil:
		extra["provider"] = snap.AIQuota.Provider
	}
	return extra
}

// ListRuns 最近的运行记录，Redis 缓存 5 分钟
func (s *Store) ListRuns(limit int) ([]ReportRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("report:runs:%d", limit)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []ReportRun
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var runs []ReportRun
	if err := s.DB.Model(&ReportRun{}).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil && len(runs) > 0 {
		if bs, err := json.Marshal(runs); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, runListCacheTTL).Err()
		}
	}
	return runs, nil
}

// ListRunStatuses 某一轮各源的结果
func (s *Store) ListRunStatuses(runID uint) ([]SourceStatus, error) {
	var statuses []SourceStatus
	err := s.DB.Where("run_id = ?", runID).Order("kind ASC").Find(&statuses).Error
	return statuses, err
}

// CacheLatestReport 缓存最近一张简报图片
func (s *Store) CacheLatestReport(rep *report.Rendered) error {
	if s.Redis == nil {
		return nil
	}
	ctx := context.Background()
	if err := s.Redis.Set(ctx, latestPNGKey, rep.PNG, latestTTL).Err(); err != nil {
		return err
	}
	return s.Redis.Set(ctx, latestAtKey, rep.GeneratedAt.Format(time.RFC3339), latestTTL).Err()
}

// LatestReport 取最近缓存的简报图片；无缓存时第三个返回值为 false
func (s *Store) LatestReport() ([]byte, time.Time, bool) {
	if s.Redis == nil {
		return nil, time.Time{}, false
	}
	ctx := context.Background()

	png, err := s.Redis.Get(ctx, latestPNGKey).Bytes()
	if err != nil || len(png) == 0 {
		return nil, time.Time{}, false
	}

	var at time.Time
	if raw, err := s.Redis.Get(ctx, latestAtKey).Result(); err == nil {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			at = t
		}
	}
	return png, at, true
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断，保证不超出数据库字段长度（varchar(600)）
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
