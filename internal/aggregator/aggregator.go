// Package aggregator 并发执行全部数据源采集，在统一截止时间内汇总成
// 一份完整的 report.Context。聚合本身永不失败：任何源的失败都以
// Outcome 形式落入结果，缺席的源按超时失败补齐。
package aggregator

import (
	"context"
	"log"
	"time"

	"github.com/LJTian/DailyBrief/internal/report"
	"github.com/LJTian/DailyBrief/internal/source"
)

const (
	defaultPerSourceTimeout = 15 * time.Second
	defaultOverallDeadline  = 30 * time.Second
	// 网络/超时类失败固定重试一次，退避 2s；解析与鉴权失败不重试
	defaultRetryBackoff = 2 * time.Second
	maxAttempts         = 2
)

type Options struct {
	PerSourceTimeout time.Duration
	OverallDeadline  time.Duration
	RetryBackoff     time.Duration
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.PerSourceTimeout <= 0 {
		out.PerSourceTimeout = defaultPerSourceTimeout
	}
	if out.OverallDeadline <= 0 {
		out.OverallDeadline = defaultOverallDeadline
	}
	if out.RetryBackoff <= 0 {
		out.RetryBackoff = defaultRetryBackoff
	}
	return out
}

// Run 并发拉取所有源并在 OverallDeadline 内汇总。到达截止时间后不再等待
// 未完成的源，直接记为 timeout 失败；对应的请求可能仍在后台完成，其结果被丢弃
func Run(ctx context.Context, clients []source.Client, opts Options) *report.Context {
	opt := opts.withDefaults()
	rc := report.NewContext(time.Now())

	// 按 Kind 去重：同一类别只允许一个客户端，保证结果恰好一键一值
	pending := make(map[source.Kind]struct{}, len(clients))
	launch := make([]source.Client, 0, len(clients))
	for _, c := range clients {
		kind := c.Kind()
		if _, dup := pending[kind]; dup {
			log.Printf("aggregator: duplicate client for %s, skipped", kind)
			continue
		}
		pending[kind] = struct{}{}
		launch = append(launch, c)
	}
	if len(launch) == 0 {
		return rc
	}

	deadline := time.Now().Add(opt.OverallDeadline)
	results := make(chan source.Outcome, len(launch))
	for _, c := range launch {
		go func(c source.Client) {
			results <- fetchWithRetry(ctx, c, opt, deadline)
		}(c)
	}

	timer := time.NewTimer(opt.OverallDeadline)
	defer timer.Stop()

	for len(pending) > 0 {
		select {
		case out := <-results:
			if _, ok := pending[out.Kind]; !ok {
				continue
			}
			delete(pending, out.Kind)
			rc.Outcomes[out.Kind] = out
		case <-timer.C:
			markPendingTimeout(rc, pending)
			return rc
		case <-ctx.Done():
			markPendingTimeout(rc, pending)
			return rc
		}
	}

	return rc
}

// fetchWithRetry 执行单个源的采集：每次尝试有独立的超时上下文；
// 仅网络/超时类失败且截止时间还有余量时重试一次
func fetchWithRetry(ctx context.Context, c source.Client, opt Options, deadline time.Time) source.Outcome {
	kind := c.Kind()

	var last *source.Error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		snap, err := fetchOnce(ctx, c, opt.PerSourceTimeout)
		if err == nil {
			return source.Outcome{Kind: kind, Snapshot: snap}
		}

		last = source.Classify(err)
		log.Printf("fetch %s attempt %d: %v", kind, attempt, last)

		if attempt == maxAttempts || !source.Retryable(last) {
			break
		}
		if time.Now().Add(opt.RetryBackoff).After(deadline) {
			break
		}

		select {
		case <-time.After(opt.RetryBackoff):
		case <-ctx.Done():
			return failureOutcome(kind, source.Classify(ctx.Err()))
		}
	}

	return failureOutcome(kind, last)
}

func fetchOnce(ctx context.Context, c source.Client, timeout time.Duration) (snap *source.Snapshot, err error) {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 客户端内部 panic 不允许打穿聚合层，按解析失败处理
	defer func() {
		if r := recover(); r != nil {
			log.Printf("fetch %s panicked: %v", c.Kind(), r)
			snap = nil
			err = source.NewParseError("client panicked")
		}
	}()

	snap, err = c.Fetch(fctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, source.NewParseError("client returned empty snapshot")
	}
	return snap, nil
}

func failureOutcome(kind source.Kind, e *source.Error) source.Outcome {
	return source.Outcome{
		Kind: kind,
		Failure: &source.Failure{
			Kind:    kind,
			ErrKind: e.Kind,
			Message: e.Message,
			At:      time.Now(),
		},
	}
}

func markPendingTimeout(rc *report.Context, pending map[source.Kind]struct{}) {
	for kind := range pending {
		log.Printf("fetch %s: overall deadline reached, abandoned", kind)
		rc.Outcomes[kind] = failureOutcome(kind, source.NewTimeoutError(context.DeadlineExceeded))
		delete(pending, kind)
	}
}
