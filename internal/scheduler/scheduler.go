// Package scheduler 把“聚合 → 渲染 → 发送”串成一轮简报任务，
// 并用 cron 在每天配置的时间触发。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/DailyBrief/internal/aggregator"
	"github.com/LJTian/DailyBrief/internal/report"
	"github.com/LJTian/DailyBrief/internal/source"
	"github.com/LJTian/DailyBrief/internal/storage"
)

// ErrRunInFlight 上一轮尚未结束时触发的新一轮直接拒绝，避免向同一批群重复发送
var ErrRunInFlight = errors.New("a report run is already in flight")

// Renderer 由 renderer 包的实现满足
type Renderer interface {
	Render(ctx context.Context, rc *report.Context) (*report.Rendered, error)
}

// Broadcaster 由 dispatcher 包的实现满足
type Broadcaster interface {
	Broadcast(ctx context.Context, rep *report.Rendered) error
}

// Pipeline 一轮简报的完整流程。自身不持有跨轮状态，可安全重入；
// 并发触发由 running 标记挡掉
type Pipeline struct {
	clients     []source.Client
	renderer    Renderer
	broadcaster Broadcaster // 可为 nil：只生成不发送
	store       *storage.Store
	opts        aggregator.Options

	running atomic.Bool
}

func NewPipeline(clients []source.Client, r Renderer, b Broadcaster, store *storage.Store, opts aggregator.Options) *Pipeline {
	return &Pipeline{
		clients:     clients,
		renderer:    r,
		broadcaster: b,
		store:       store,
		opts:        opts,
	}
}

// RunOnce 执行一轮：聚合所有源、渲染图片、广播发送、落运行记录。
// 部分源失败不影响发送；渲染失败则整轮失败，不发送任何内容
func (p *Pipeline) RunOnce(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrRunInFlight
	}
	defer p.running.Store(false)

	return p.run(ctx)
}

// Start 异步执行一轮，立即返回；上一轮未结束时返回 ErrRunInFlight
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrRunInFlight
	}
	go func() {
		defer p.running.Store(false)
		if err := p.run(ctx); err != nil {
			log.Printf("triggered report run error: %v", err)
		}
	}()
	return nil
}

func (p *Pipeline) run(ctx context.Context) error {
	log.Println("start report run...")
	startedAt := time.Now()

	rc := aggregator.Run(ctx, p.clients, p.opts)
	log.Printf("aggregation done: %d/%d sources ok", rc.SucceededCount(), len(rc.Outcomes))

	rep, err := p.renderer.Render(ctx, rc)
	if err != nil {
		log.Printf("render report failed: %v", err)
		p.record(rc, startedAt, storage.RunStatusRenderFailed, err, 0)
		return fmt.Errorf("render report: %w", err)
	}

	var sendErr error
	if p.broadcaster != nil {
		sendErr = p.broadcaster.Broadcast(ctx, rep)
	}

	if p.store != nil {
		if err := p.store.CacheLatestReport(rep); err != nil {
			log.Printf("warn: cache latest report: %v", err)
		}
	}

	status := storage.RunStatusOK
	if sendErr != nil {
		status = storage.RunStatusSendFailed
	}
	p.record(rc, startedAt, status, sendErr, len(rep.PNG))

	log.Println("report run done")
	return sendErr
}

func (p *Pipeline) record(rc *report.Context, startedAt time.Time, status string, runErr error, pngBytes int) {
	if p.store == nil {
		return
	}
	run := &storage.ReportRun{
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Status:     status,
		Succeeded:  rc.SucceededCount(),
		Total:      len(rc.Outcomes),
		PNGBytes:   pngBytes,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := p.store.SaveRun(run, rc); err != nil {
		log.Printf("warn: save run record: %v", err)
	}
}

type Scheduler struct {
	cron     *cron.Cron
	pipeline *Pipeline
}

// New 按每天的发送时间（HH:MM）注册简报任务
func New(sendTime string, p *Pipeline) (*Scheduler, error) {
	spec, err := timeToCronSpec(sendTime)
	if err != nil {
		return nil, err
	}

	c := cron.New()
	s := &Scheduler{cron: c, pipeline: p}

	if _, err := c.AddFunc(spec, s.runJob); err != nil {
		return nil, err
	}
	log.Printf("daily report scheduled at %s", sendTime)
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runJob() {
	if err := s.pipeline.RunOnce(context.Background()); err != nil {
		log.Printf("scheduled report run error: %v", err)
	}
}

// timeToCronSpec 将 "08:00" 形式的发送时间转成 cron 表达式 "0 8 * * *"
func timeToCronSpec(sendTime string) (string, error) {
	parts := strings.SplitN(sendTime, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid send time %q, expect HH:MM", sendTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in send time %q", sendTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in send time %q", sendTime)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
