package exchange

//go:generate mockgen -source=source.go -destination=mock_source.go -package=exchange

import (
	"context"
	"time"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"github.com/adaptbtc/adaptbtc-server/internal/upstream"
)

// RequestTimeout 每个交易所请求的固定超时
const RequestTimeout = 10 * time.Second

// Source 单个交易所报价来源
type Source interface {
	Name() string
	Description() string
	FetchPrice(ctx context.Context) (float64, error)
}

// extractFunc 从响应中取出价格字段
type extractFunc func(root gjson.Result) (gjson.Result, error)

// httpSource 通过一次 HTTP 请求取价的来源
type httpSource struct {
	name        string
	description string
	url         string
	body        any // 非 nil 时使用 POST
	client      *upstream.Client
	extract     extractFunc
}

func (s *httpSource) Name() string        { return s.name }
func (s *httpSource) Description() string { return s.description }

func (s *httpSource) FetchPrice(ctx context.Context) (float64, error) {
	var (
		raw []byte
		err error
	)
	if s.body != nil {
		raw, err = s.client.PostJSON(ctx, s.url, s.body)
	} else {
		raw, err = s.client.GetJSON(ctx, s.url)
	}
	if err != nil {
		return 0, err
	}

	field, err := s.extract(gjson.ParseBytes(raw))
	if err != nil {
		return 0, err
	}
	return s.parsePrice(field)
}

// parsePrice 字段可以是数字或数字字符串，必须为正数
func (s *httpSource) parsePrice(field gjson.Result) (float64, error) {
	if field.Type != gjson.Number && field.Type != gjson.String {
		return 0, upstream.Malformed(s.name, "price field has unexpected type %s", field.Type)
	}
	price, err := cast.ToFloat64E(field.Value())
	if err != nil {
		return 0, upstream.Malformed(s.name, "price %q is not numeric", field.String())
	}
	if price <= 0 {
		return 0, upstream.Malformed(s.name, "non-positive price %v", price)
	}
	return price, nil
}

// path 按 gjson 路径取字段
func path(name, p string) extractFunc {
	return func(root gjson.Result) (gjson.Result, error) {
		field := root.Get(p)
		if !field.Exists() {
			return field, upstream.Malformed(name, "missing %q", p)
		}
		return field, nil
	}
}
