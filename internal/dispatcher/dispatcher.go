// Package dispatcher 把渲染好的简报图片发送到配置的群聊。
package dispatcher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/LJTian/DailyBrief/internal/report"
)

// 对同一 bot 宿主连续发送消息需要间隔，避免触发风控
const sendInterval = 2 * time.Second

// Sender 向单个目的地发送一份简报
type Sender interface {
	Send(ctx context.Context, rep *report.Rendered, destination string) error
}

// Dispatcher 按配置的群列表逐个发送，发送节奏由限速器控制
type Dispatcher struct {
	sender  Sender
	groups  []string
	limiter *rate.Limiter
}

func New(sender Sender, groups []string) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		groups:  groups,
		limiter: rate.NewLimiter(rate.Every(sendInterval), 1),
	}
}

// Broadcast 向所有群发送。单个群发送失败不影响其余群，
// 全部尝试后把失败合并返回
func (d *Dispatcher) Broadcast(ctx context.Context, rep *report.Rendered) error {
	var errs []error
	for _, group := range d.groups {
		if err := d.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		if err := d.sender.Send(ctx, rep, group); err != nil {
			log.Printf("send report to group %s failed: %v", group, err)
			errs = append(errs, fmt.Errorf("group %s: %w", group, err))
			continue
		}
		log.Printf("report sent to group %s (%d bytes)", group, len(rep.PNG))
	}
	return errors.Join(errs...)
}

// WebhookSender 通过 bot 宿主的 HTTP 接口（OneBot 风格 send_group_msg）发送图片消息
type WebhookSender struct {
	client *resty.Client
}

func NewWebhookSender(baseURL, accessToken string) *WebhookSender {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	if accessToken != "" {
		client.SetAuthToken(accessToken)
	}
	return &WebhookSender{client: client}
}

type sendGroupMsgReq struct {
	GroupID string       `json:"group_id"`
	Message []msgSegment `json:"message"`
}

type msgSegment struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

type sendGroupMsgResp struct {
	Status  string `json:"status"`
	RetCode int    `json:"retcode"`
	Message string `json:"message"`
}

func (w *WebhookSender) Send(ctx context.Context, rep *report.Rendered, destination string) error {
	payload := sendGroupMsgReq{
		GroupID: destination,
		Message: []msgSegment{
			{
				Type: "image",
				Data: map[string]string{
					"file": "base64://" + base64.StdEncoding.EncodeToString(rep.PNG),
				},
			},
		},
	}

	var result sendGroupMsgResp
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/send_group_msg")
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	if result.RetCode != 0 {
		return fmt.Errorf("webhook retcode %d: %s", result.RetCode, result.Message)
	}
	return nil
}
