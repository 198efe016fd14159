// Package report 定义一轮简报的中间产物：聚合结果上下文与渲染后的图片。
// 两者都只在单轮内存活，跨轮不持久化。
package report

import (
	"time"

	"github.com/LJTian/DailyBrief/internal/source"
)

// Context 一轮聚合的完整结果：每个配置的源恰好一个 Outcome，
// 缺席的源以失败形式显式占位，绝不缺键
type Context struct {
	GeneratedAt time.Time
	Outcomes    map[source.Kind]source.Outcome
}

func NewContext(at time.Time) *Context {
	return &Context{
		GeneratedAt: at,
		Outcomes:    make(map[source.Kind]source.Outcome),
	}
}

// Get 按源类别取结果，供模板使用。未配置的源返回零值 Outcome（渲染为占位块）
func (c *Context) Get(kind string) source.Outcome {
	return c.Outcomes[source.Kind(kind)]
}

// Date 报告日期文案，如 "2026-08-29 Friday"
func (c *Context) Date() string {
	return c.GeneratedAt.Format("2006-01-02 Monday")
}

// SucceededCount 成功源数量，用于日志与运行记录
func (c *Context) SucceededCount() int {
	n := 0
	for _, o := range c.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Rendered 渲染完成的简报图片，发送前归调度/分发层所有
type Rendered struct {
	PNG         []byte
	GeneratedAt time.Time
}
