// Package renderer 把聚合结果填入 HTML 模板，并用无头浏览器转成 PNG 图片。
// 模板填充失败对整轮来说是致命错误，必须向上层返回；单个源的失败
// 由模板渲染为“暂无数据”占位块。
package renderer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/LJTian/DailyBrief/internal/report"
	"github.com/LJTian/DailyBrief/internal/source"
)

const (
	// 固定 500px 视口宽度、2x 缩放，和移动端聊天窗口的展示宽度匹配
	viewportWidth  = 500
	viewportHeight = 800
	viewportScale  = 2.0
)

type Renderer struct {
	tmpl *template.Template

	// screenshot 可注入，测试中替换掉真实的浏览器截图
	screenshot func(ctx context.Context, html []byte) ([]byte, error)
}

// New 从模板文件构造渲染器。模板文件缺失或语法错误直接返回错误，
// 不做兜底模板：空报告没有发送价值
func New(templatePath string) (*Renderer, error) {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", templatePath, err)
	}

	tmpl, err := template.New(filepath.Base(templatePath)).Funcs(templateFuncs()).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", templatePath, err)
	}

	r := &Renderer{tmpl: tmpl}
	r.screenshot = r.chromeScreenshot
	return r, nil
}

// QuotaProvider 模板中 AI 余额区块的固定展示顺序
type QuotaProvider struct {
	Kind string
	Name string
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"hasPrefix": strings.HasPrefix,
		// 模板按该列表顺序展示各 AI 服务商，与配置的源一一对应
		"aiQuotaKinds": func() []QuotaProvider {
			return []QuotaProvider{
				{Kind: string(source.KindQuotaOpenRouter), Name: "OpenRouter"},
				{Kind: string(source.KindQuotaDeepSeek), Name: "DeepSeek"},
				{Kind: string(source.KindQuotaMoonshot), Name: "Moonshot"},
				{Kind: string(source.KindQuotaSiliconFlow), Name: "SiliconFlow"},
			}
		},
	}
}

// BuildHTML 用聚合结果填充模板。同一份输入产出字节一致的 HTML
func (r *Renderer) BuildHTML(rc *report.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, rc); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// Render 填充模板并截图，返回可直接发送的简报图片
func (r *Renderer) Render(ctx context.Context, rc *report.Context) (*report.Rendered, error) {
	html, err := r.BuildHTML(rc)
	if err != nil {
		return nil, err
	}

	png, err := r.screenshot(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}

	return &report.Rendered{PNG: png, GeneratedAt: rc.GeneratedAt}, nil
}

// chromeScreenshot 通过 data URL 加载 HTML 并整页截图。
// 每轮新起一个无头实例：日报频率很低，不值得常驻浏览器进程
func (r *Renderer) chromeScreenshot(ctx context.Context, html []byte) ([]byte, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)

	var png []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight, chromedp.EmulateScale(viewportScale)),
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		return nil, err
	}
	return png, nil
}
