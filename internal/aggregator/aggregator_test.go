package aggregator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/DailyBrief/internal/source"
)

// stubClient 可配置延迟与逐次返回值的伪数据源
type stubClient struct {
	kind  source.Kind
	delay time.Duration
	snap  *source.Snapshot
	errs  []error // 第 n 次调用返回 errs[n-1]，越界后返回 snap
	calls int32
}

func (s *stubClient) Kind() source.Kind { return s.kind }

func (s *stubClient) Fetch(ctx context.Context) (*source.Snapshot, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if int(n) <= len(s.errs) {
		return nil, s.errs[n-1]
	}
	return s.snap, nil
}

func okSnap(kind source.Kind) *source.Snapshot {
	return &source.Snapshot{Kind: kind, FetchedAt: time.Now()}
}

func fastOpts() Options {
	return Options{
		PerSourceTimeout: 200 * time.Millisecond,
		OverallDeadline:  500 * time.Millisecond,
		RetryBackoff:     20 * time.Millisecond,
	}
}

func TestRunAllSucceed(t *testing.T) {
	clients := []source.Client{
		&stubClient{kind: source.KindNews, snap: okSnap(source.KindNews)},
		&stubClient{kind: source.KindFXRate, snap: okSnap(source.KindFXRate)},
		&stubClient{kind: source.KindAnime, snap: okSnap(source.KindAnime)},
	}

	rc := Run(context.Background(), clients, fastOpts())

	if len(rc.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(rc.Outcomes))
	}
	for _, c := range clients {
		out, ok := rc.Outcomes[c.Kind()]
		if !ok {
			t.Fatalf("missing outcome for %s", c.Kind())
		}
		if !out.OK() {
			t.Errorf("%s: expected success, got failure %v", c.Kind(), out.Failure)
		}
	}
}

// 任意失败组合下结果仍然完整：每个源恰好一个 Outcome
func TestRunCompleteUnderMixedFailures(t *testing.T) {
	clients := []source.Client{
		&stubClient{kind: source.KindNews, snap: okSnap(source.KindNews)},
		&stubClient{kind: source.KindTechRank, errs: []error{source.NewParseError("layout changed"), source.NewParseError("layout changed")}},
		&stubClient{kind: source.KindQuotaDeepSeek, errs: []error{source.NewAuthError("no key"), source.NewAuthError("no key")}},
		&stubClient{kind: source.KindFXRate, snap: okSnap(source.KindFXRate)},
	}

	rc := Run(context.Background(), clients, fastOpts())

	if len(rc.Outcomes) != len(clients) {
		t.Fatalf("outcomes = %d, want %d", len(rc.Outcomes), len(clients))
	}
	if rc.SucceededCount() != 2 {
		t.Fatalf("succeeded = %d, want 2", rc.SucceededCount())
	}
	if f := rc.Outcomes[source.KindTechRank].Failure; f == nil || f.ErrKind != source.ErrParse {
		t.Errorf("techrank failure = %+v, want parse", f)
	}
	if f := rc.Outcomes[source.KindQuotaDeepSeek].Failure; f == nil || f.ErrKind != source.ErrAuth {
		t.Errorf("deepseek failure = %+v, want auth", f)
	}
}

// 全部源挂起时，Run 必须在整体截止时间附近返回，而不是等待 per-source 超时叠加
func TestRunBoundedByOverallDeadline(t *testing.T) {
	clients := []source.Client{
		&stubClient{kind: source.KindNews, delay: time.Hour},
		&stubClient{kind: source.KindAnime, delay: time.Hour},
	}
	opts := Options{
		PerSourceTimeout: time.Hour,
		OverallDeadline:  300 * time.Millisecond,
		RetryBackoff:     10 * time.Millisecond,
	}

	start := time.Now()
	rc := Run(context.Background(), clients, opts)
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("Run took %v, expected roughly the overall deadline", elapsed)
	}
	if len(rc.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(rc.Outcomes))
	}
	for kind, out := range rc.Outcomes {
		if out.Failure == nil || out.Failure.ErrKind != source.ErrTimeout {
			t.Errorf("%s: expected timeout failure, got %+v", kind, out.Failure)
		}
	}
}

// 慢源被放弃为 timeout 失败，不拖累其余源的成功结果
func TestRunAbandonsSlowSource(t *testing.T) {
	clients := []source.Client{
		&stubClient{kind: source.KindNews, snap: okSnap(source.KindNews)},
		&stubClient{kind: source.KindHardware, delay: time.Hour},
	}
	opts := Options{
		PerSourceTimeout: time.Hour,
		OverallDeadline:  300 * time.Millisecond,
	}

	rc := Run(context.Background(), clients, opts)

	if !rc.Outcomes[source.KindNews].OK() {
		t.Errorf("news should succeed")
	}
	if f := rc.Outcomes[source.KindHardware].Failure; f == nil || f.ErrKind != source.ErrTimeout {
		t.Errorf("hardware failure = %+v, want timeout", f)
	}
}

// 网络错误重试一次后成功
func TestRunRetriesNetworkErrorOnce(t *testing.T) {
	c := &stubClient{
		kind: source.KindNews,
		snap: okSnap(source.KindNews),
		errs: []error{source.NewNetworkError(context.Canceled)},
	}

	rc := Run(context.Background(), []source.Client{c}, fastOpts())

	if got := atomic.LoadInt32(&c.calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
	if !rc.Outcomes[source.KindNews].OK() {
		t.Fatalf("expected success after retry, got %+v", rc.Outcomes[source.KindNews].Failure)
	}
}

// 两次都失败则放弃，不做第三次尝试
func TestRunRetriesAtMostOnce(t *testing.T) {
	c := &stubClient{
		kind: source.KindNews,
		snap: okSnap(source.KindNews),
		errs: []error{
			source.NewNetworkError(context.Canceled),
			source.NewNetworkError(context.Canceled),
		},
	}

	rc := Run(context.Background(), []source.Client{c}, fastOpts())

	if got := atomic.LoadInt32(&c.calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
	if f := rc.Outcomes[source.KindNews].Failure; f == nil || f.ErrKind != source.ErrNetwork {
		t.Fatalf("failure = %+v, want network", f)
	}
}

// 解析与鉴权失败不重试
func TestRunNoRetryForParseOrAuth(t *testing.T) {
	parse := &stubClient{kind: source.KindNews, errs: []error{source.NewParseError("bad body")}}
	auth := &stubClient{kind: source.KindFXRate, errs: []error{source.NewAuthError("no key")}}

	Run(context.Background(), []source.Client{parse, auth}, fastOpts())

	if got := atomic.LoadInt32(&parse.calls); got != 1 {
		t.Errorf("parse client calls = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&auth.calls); got != 1 {
		t.Errorf("auth client calls = %d, want 1", got)
	}
}

// 截止时间余量不足以覆盖退避时间时跳过重试
func TestRunSkipsRetryNearDeadline(t *testing.T) {
	c := &stubClient{
		kind: source.KindNews,
		snap: okSnap(source.KindNews),
		errs: []error{source.NewNetworkError(context.Canceled)},
	}
	opts := Options{
		PerSourceTimeout: 200 * time.Millisecond,
		OverallDeadline:  500 * time.Millisecond,
		RetryBackoff:     time.Minute,
	}

	rc := Run(context.Background(), []source.Client{c}, opts)

	if got := atomic.LoadInt32(&c.calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if f := rc.Outcomes[source.KindNews].Failure; f == nil || f.ErrKind != source.ErrNetwork {
		t.Fatalf("failure = %+v, want network", f)
	}
}

// 客户端 panic 被捕获，归为解析失败
func TestRunRecoversClientPanic(t *testing.T) {
	c := &panicClient{kind: source.KindAnime}

	rc := Run(context.Background(), []source.Client{c}, fastOpts())

	f := rc.Outcomes[source.KindAnime].Failure
	if f == nil || f.ErrKind != source.ErrParse {
		t.Fatalf("failure = %+v, want parse", f)
	}
}

type panicClient struct {
	kind source.Kind
}

func (p *panicClient) Kind() source.Kind { return p.kind }

func (p *panicClient) Fetch(ctx context.Context) (*source.Snapshot, error) {
	panic("boom")
}

// 返回 nil 快照且无错误的客户端按解析失败处理
func TestRunNilSnapshotIsParseFailure(t *testing.T) {
	c := &stubClient{kind: source.KindNews, snap: nil}

	rc := Run(context.Background(), []source.Client{c}, fastOpts())

	f := rc.Outcomes[source.KindNews].Failure
	if f == nil || f.ErrKind != source.ErrParse {
		t.Fatalf("failure = %+v, want parse", f)
	}
}

// 同类重复客户端只执行一个
func TestRunSkipsDuplicateKind(t *testing.T) {
	first := &stubClient{kind: source.KindNews, snap: okSnap(source.KindNews)}
	second := &stubClient{kind: source.KindNews, snap: okSnap(source.KindNews)}

	rc := Run(context.Background(), []source.Client{first, second}, fastOpts())

	if len(rc.Outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(rc.Outcomes))
	}
	if atomic.LoadInt32(&first.calls)+atomic.LoadInt32(&second.calls) != 1 {
		t.Fatalf("expected exactly one fetch across duplicates")
	}
}

func TestRunEmptyClients(t *testing.T) {
	rc := Run(context.Background(), nil, fastOpts())
	if len(rc.Outcomes) != 0 {
		t.Fatalf("outcomes = %d, want 0", len(rc.Outcomes))
	}
	if rc.GeneratedAt.IsZero() {
		t.Fatalf("GeneratedAt should be set")
	}
}

// 外部 ctx 取消时立即返回，未完成的源记为 timeout 失败
func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &stubClient{kind: source.KindNews, delay: time.Hour}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	rc := Run(ctx, []source.Client{c}, Options{
		PerSourceTimeout: time.Hour,
		OverallDeadline:  time.Hour,
	})

	if time.Since(start) > 2*time.Second {
		t.Fatalf("Run did not return promptly on cancel")
	}
	// 取消瞬间客户端自身的错误可能先一步落在结果通道里，
	// 只要求记录为失败，不限定具体类别
	if f := rc.Outcomes[source.KindNews].Failure; f == nil {
		t.Fatal("expected failure outcome after cancel")
	}
}
