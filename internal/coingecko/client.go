package coingecko

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/adaptbtc/adaptbtc-server/internal/upstream"
)

const (
	SourceName     = "CoinGecko"
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	// RequestTimeout 历史与快照接口的固定超时
	RequestTimeout = 15 * time.Second
)

// PricePoint [毫秒时间戳, 价格]，按上游原样序列化
type PricePoint [2]float64

func (p PricePoint) Timestamp() float64 { return p[0] }
func (p PricePoint) Price() float64     { return p[1] }

// Client CoinGecko 比特币行情
type Client struct {
	baseURL string
	http    *upstream.Client
}

func NewClient(baseURL string, opts ...upstream.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    upstream.NewClient(SourceName, RequestTimeout, opts...),
	}
}

// History 拉取价格历史，days 原样透传（"max"、"30" 等）
func (c *Client) History(ctx context.Context, days string) ([]PricePoint, error) {
	body, err := c.http.GetJSON(ctx, c.baseURL+"/coins/bitcoin/market_chart", upstream.WithQuery(map[string]string{
		"vs_currency": "usd",
		"days":        days,
		"interval":    "daily",
	}))
	if err != nil {
		return nil, err
	}
	return parseHistory(body)
}

// Snapshot 拉取当前市场数据，响应体原样返回
func (c *Client) Snapshot(ctx context.Context) (json.RawMessage, error) {
	body, err := c.http.GetJSON(ctx, c.baseURL+"/coins/bitcoin", upstream.WithQuery(map[string]string{
		"localization":   "false",
		"tickers":        "false",
		"market_data":    "true",
		"community_data": "false",
		"developer_data": "false",
		"sparkline":      "false",
	}))
	if err != nil {
		return nil, err
	}
	if !gjson.ParseBytes(body).IsObject() {
		return nil, upstream.Malformed(SourceName, "snapshot is not a JSON object")
	}
	return json.RawMessage(body), nil
}

func parseHistory(body []byte) ([]PricePoint, error) {
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, upstream.Malformed(SourceName, "history is not a JSON object")
	}
	prices := root.Get("prices")
	if !prices.Exists() {
		return nil, upstream.Malformed(SourceName, `missing "prices"`)
	}
	if !prices.IsArray() {
		return nil, upstream.Malformed(SourceName, `"prices" is not an array`)
	}

	items := prices.Array()
	points := make([]PricePoint, 0, len(items))
	for i, item := range items {
		pair := item.Array()
		if !item.IsArray() || len(pair) != 2 || pair[0].Type != gjson.Number || pair[1].Type != gjson.Number {
			return nil, upstream.Malformed(SourceName, "prices[%d] is not a [timestamp, price] pair", i)
		}
		points = append(points, PricePoint{pair[0].Float(), pair[1].Float()})
	}
	return points, nil
}
