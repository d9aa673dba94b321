package exchange

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/adaptbtc/adaptbtc-server/internal/upstream"
)

const (
	CoinbaseURL    = "https://api.coinbase.com/v2/prices/BTC-USD/spot"
	BinanceURL     = "https://api.binance.com/api/v3/ticker/price?symbol=BTCUSDT"
	KrakenURL      = "https://api.kraken.com/0/public/Ticker?pair=XBTUSD"
	HyperliquidURL = "https://api.hyperliquid.xyz"
)

// NewCoinbase Coinbase 现货价，字段 data.amount
func NewCoinbase(url string, opts ...upstream.ClientOption) Source {
	return newHTTPSource("Coinbase", "Coinbase spot price", orDefault(url, CoinbaseURL), nil, opts,
		func(name string) extractFunc { return path(name, "data.amount") })
}

// NewBinance Binance BTCUSDT 最新价，字段 price
func NewBinance(url string, opts ...upstream.ClientOption) Source {
	return newHTTPSource("Binance", "Binance BTC/USDT ticker", orDefault(url, BinanceURL), nil, opts,
		func(name string) extractFunc { return path(name, "price") })
}

// NewKraken Kraken XBTUSD，取 result 中第一个交易对的 c[0]（最新成交价）
func NewKraken(url string, opts ...upstream.ClientOption) Source {
	return newHTTPSource("Kraken", "Kraken XBT/USD ticker", orDefault(url, KrakenURL), nil, opts, krakenExtract)
}

// NewHyperliquid Hyperliquid 永续中间价，POST /info {"type":"allMids"}
func NewHyperliquid(baseURL string, opts ...upstream.ClientOption) Source {
	url := strings.TrimRight(orDefault(baseURL, HyperliquidURL), "/") + "/info"
	return newHTTPSource("Hyperliquid", "Hyperliquid BTC perp mid", url, map[string]string{"type": "allMids"}, opts,
		func(name string) extractFunc { return path(name, "BTC") })
}

// DefaultSources 默认来源顺序：Coinbase、Binance、Kraken，可选 Hyperliquid
func DefaultSources(withHyperliquid bool, hyperliquidURL string, opts ...upstream.ClientOption) []Source {
	sources := []Source{
		NewCoinbase("", opts...),
		NewBinance("", opts...),
		NewKraken("", opts...),
	}
	if withHyperliquid {
		sources = append(sources, NewHyperliquid(hyperliquidURL, opts...))
	}
	return sources
}

func newHTTPSource(name, description, url string, body any, opts []upstream.ClientOption, extract func(string) extractFunc) *httpSource {
	return &httpSource{
		name:        name,
		description: description,
		url:         url,
		body:        body,
		client:      upstream.NewClient(name, RequestTimeout, opts...),
		extract:     extract(name),
	}
}

func krakenExtract(name string) extractFunc {
	return func(root gjson.Result) (gjson.Result, error) {
		if errs := root.Get("error"); errs.IsArray() && len(errs.Array()) > 0 {
			return gjson.Result{}, upstream.Malformed(name, "api error: %s", errs.Array()[0].String())
		}
		result := root.Get("result")
		if !result.IsObject() {
			return gjson.Result{}, upstream.Malformed(name, `missing "result"`)
		}

		var ticker gjson.Result
		result.ForEach(func(_, value gjson.Result) bool {
			ticker = value
			return false
		})
		if !ticker.Exists() {
			return gjson.Result{}, upstream.Malformed(name, `empty "result"`)
		}

		last := ticker.Get("c.0")
		if !last.Exists() {
			return gjson.Result{}, upstream.Malformed(name, `missing "c" last trade`)
		}
		return last, nil
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
