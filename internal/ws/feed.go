package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adaptbtc/adaptbtc-server/internal/exchange"
	"github.com/adaptbtc/adaptbtc-server/pkg/concurrent"
	"github.com/adaptbtc/adaptbtc-server/pkg/goplus"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const DefaultInterval = 15 * time.Second

// QuoteSource 聚合报价（经过缓存）
type QuoteSource interface {
	ExchangePrices(ctx context.Context) (*exchange.AggregatedQuote, error)
}

// Gauge 在线客户端计数
type Gauge interface {
	AddStreamClients(delta int)
}

type noopGauge struct{}

func (noopGauge) AddStreamClients(int) {}

// ErrorMessage 报价失败时推送的消息
type ErrorMessage struct {
	Error string `json:"error"`
}

// Feed 行情推送：连接建立后立即推送一次，之后按固定间隔推送
type Feed struct {
	quotes   QuoteSource
	interval time.Duration
	upgrader websocket.Upgrader
	clients  concurrent.Map[*Client, struct{}]
	gauge    Gauge
	log      zerolog.Logger
}

type FeedOption func(*Feed)

// WithCheckOrigin 自定义跨域校验，默认允许所有来源
func WithCheckOrigin(fn func(r *http.Request) bool) FeedOption {
	return func(f *Feed) { f.upgrader.CheckOrigin = fn }
}

func WithGauge(g Gauge) FeedOption {
	return func(f *Feed) { f.gauge = g }
}

func NewFeed(quotes QuoteSource, interval time.Duration, opts ...FeedOption) *Feed {
	if interval <= 0 {
		interval = DefaultInterval
	}
	f := &Feed{
		quotes:   quotes,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		gauge: noopGauge{},
		log:   logger.Component("feed"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Clients 当前连接数
func (f *Feed) Clients() int {
	return int(f.clients.Len())
}

// ServeHTTP 升级连接并阻塞推送，直到连接关闭
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写好错误响应
		f.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade failed")
		return
	}

	client := NewClient(conn)
	f.clients.Store(client, struct{}{})
	f.gauge.AddStreamClients(1)
	f.log.Debug().Str("remote", r.RemoteAddr).Int("clients", f.Clients()).Msg("feed client connected")

	defer func() {
		client.Close()
		f.clients.Delete(client)
		f.gauge.AddStreamClients(-1)
		f.log.Debug().Str("remote", r.RemoteAddr).Int("clients", f.Clients()).Msg("feed client disconnected")
	}()

	goplus.Go(client.readPump)
	goplus.Go(client.pingPump)

	f.push(r.Context(), client)
}

func (f *Feed) push(ctx context.Context, client *Client) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		if err := client.WriteJSON(f.message(ctx)); err != nil {
			return
		}

		select {
		case <-client.Done():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (f *Feed) message(ctx context.Context) any {
	quote, err := f.quotes.ExchangePrices(ctx)
	if err != nil {
		return ErrorMessage{Error: "Unable to load exchange prices: " + err.Error()}
	}
	return quote
}

// Close 关闭所有连接
func (f *Feed) Close() {
	f.clients.Range(func(c *Client, _ struct{}) bool {
		c.Close()
		return true
	})
}
