package source

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"resty.dev/v3"
)

const fxrateDefaultBaseURL = "https://v6.exchangerate-api.com"

// 展示的目标币种，基准为 CNY
var fxrateCurrencies = []string{"USD", "JPY", "EUR", "GBP"}

// FXRateClient 从 exchangerate-api 获取以 CNY 为基准的汇率
type FXRateClient struct {
	apiKey string
	base   string
	client *resty.Client
}

func NewFXRateClient(apiKey, baseURL string) *FXRateClient {
	if baseURL == "" {
		baseURL = fxrateDefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	return &FXRateClient{apiKey: apiKey, base: "CNY", client: client}
}

func (f *FXRateClient) Kind() Kind {
	return KindFXRate
}

type fxrateResp struct {
	Result             string             `json:"result"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	ConversionRates    map[string]float64 `json:"conversion_rates"`
}

func (f *FXRateClient) Fetch(ctx context.Context) (*Snapshot, error) {
	if f.apiKey == "" {
		return nil, NewAuthError("exchangerate API key not configured")
	}

	log.Println("fetch exchange rates (CNY base)...")

	var result fxrateResp
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/v6/%s/latest/%s", f.apiKey, f.base))
	if err != nil {
		return nil, Classify(err)
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, NewAuthError(fmt.Sprintf("exchangerate API rejected key (status %d)", resp.StatusCode()))
	}
	if !resp.IsSuccess() {
		return nil, NewParseError(fmt.Sprintf("unexpected status %d", resp.StatusCode()))
	}
	if result.Result != "success" {
		return nil, NewParseError("exchangerate API result is not success")
	}

	rates := make(map[string]string, len(fxrateCurrencies))
	for _, cur := range fxrateCurrencies {
		v, ok := result.ConversionRates[cur]
		if !ok {
			return nil, NewParseError("conversion rate missing for " + cur)
		}
		rates[cur] = strconv.FormatFloat(v, 'f', 4, 64)
	}

	asOf := time.Now()
	if result.TimeLastUpdateUnix > 0 {
		asOf = time.Unix(result.TimeLastUpdateUnix, 0)
	}

	return &Snapshot{
		Kind:      KindFXRate,
		FetchedAt: time.Now(),
		FXRate: &RateTable{
			Base:  f.base,
			Rates: rates,
			AsOf:  asOf,
		},
	}, nil
}
