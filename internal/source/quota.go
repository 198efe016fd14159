package source

import (
	"fmt"

	"resty.dev/v3"
)

// AI 余额查询共用的 Bearer 鉴权 HTTP 客户端
func newQuotaRestyClient(baseURL, apiKey string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetAuthToken(apiKey)
}

// quotaStatusError 将余额接口的非 2xx 响应归类：401/403 为鉴权失败，其余按解析失败处理
func quotaStatusError(provider string, status int) *Error {
	if status == 401 || status == 403 {
		return NewAuthError(fmt.Sprintf("%s rejected credential (status %d)", provider, status))
	}
	return NewParseError(fmt.Sprintf("%s returned unexpected status %d", provider, status))
}
