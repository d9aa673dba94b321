package pricing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/adaptbtc/adaptbtc-server/internal/cache"
	"github.com/adaptbtc/adaptbtc-server/internal/coingecko"
	"github.com/adaptbtc/adaptbtc-server/internal/exchange"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const (
	// HistoryTTL 历史与快照共用
	HistoryTTL  = 300 * time.Second
	SnapshotTTL = HistoryTTL
	ExchangeTTL = 60 * time.Second

	DefaultHistoryRange = "max"

	snapshotKey = "bitcoin"
	exchangeKey = "btc-usd"
)

// MarketData 单一来源的历史与快照
type MarketData interface {
	History(ctx context.Context, days string) ([]coingecko.PricePoint, error)
	Snapshot(ctx context.Context) (json.RawMessage, error)
}

// QuoteAggregator 多交易所聚合
type QuoteAggregator interface {
	Aggregate(ctx context.Context) (*exchange.AggregatedQuote, error)
}

// CacheMetrics 缓存命中指标
type CacheMetrics interface {
	CacheHit(cache string)
	CacheMiss(cache string)
}

type noopCacheMetrics struct{}

func (noopCacheMetrics) CacheHit(string)  {}
func (noopCacheMetrics) CacheMiss(string) {}

type Option func(*Service)

// WithClock 三个缓存共用的时间源
func WithClock(clock cache.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithCacheMetrics(m CacheMetrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Service 持有历史、快照、交易所报价三个缓存
//
// 读取流程：命中且未过期直接返回；否则请求上游，成功后整体替换条目。
// 检查与请求之间不加锁，过期后并发的请求可能各自请求上游并各自写入。
// 上游失败直接返回错误，不回退到过期数据，也不重试。
type Service struct {
	market     MarketData
	aggregator QuoteAggregator

	history   *cache.TTLCache[[]coingecko.PricePoint]
	snapshot  *cache.TTLCache[json.RawMessage]
	exchanges *cache.TTLCache[*exchange.AggregatedQuote]

	clock   cache.Clock
	metrics CacheMetrics
	log     zerolog.Logger
}

func NewService(market MarketData, aggregator QuoteAggregator, opts ...Option) *Service {
	s := &Service{
		market:     market,
		aggregator: aggregator,
		clock:      time.Now,
		metrics:    noopCacheMetrics{},
		log:        logger.Component("pricing"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.history = cache.NewTTLCache("history", HistoryTTL, cache.WithClock[[]coingecko.PricePoint](s.clock))
	s.snapshot = cache.NewTTLCache("snapshot", SnapshotTTL, cache.WithClock[json.RawMessage](s.clock))
	s.exchanges = cache.NewTTLCache("exchange", ExchangeTTL, cache.WithClock[*exchange.AggregatedQuote](s.clock))
	return s
}

// History 指定区间的价格历史，rangeID 不做校验直接透传
func (s *Service) History(ctx context.Context, rangeID string) ([]coingecko.PricePoint, error) {
	if points, ok := s.history.Get(rangeID); ok {
		s.metrics.CacheHit(s.history.Name())
		return points, nil
	}
	s.metrics.CacheMiss(s.history.Name())

	points, err := s.market.History(ctx, rangeID)
	if err != nil {
		s.log.Warn().Err(err).Str("range", rangeID).Msg("history fetch failed")
		return nil, err
	}
	s.history.Set(rangeID, points)
	s.log.Debug().Str("range", rangeID).Int("points", len(points)).Msg("history cache refreshed")
	return points, nil
}

// Snapshot 当前市场数据快照
func (s *Service) Snapshot(ctx context.Context) (json.RawMessage, error) {
	if snap, ok := s.snapshot.Get(snapshotKey); ok {
		s.metrics.CacheHit(s.snapshot.Name())
		return snap, nil
	}
	s.metrics.CacheMiss(s.snapshot.Name())

	snap, err := s.market.Snapshot(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot fetch failed")
		return nil, err
	}
	s.snapshot.Set(snapshotKey, snap)
	return snap, nil
}

// ExchangePrices 跨交易所聚合报价，全部来源失败时返回 *exchange.AggregationError
func (s *Service) ExchangePrices(ctx context.Context) (*exchange.AggregatedQuote, error) {
	if quote, ok := s.exchanges.Get(exchangeKey); ok {
		s.metrics.CacheHit(s.exchanges.Name())
		return quote, nil
	}
	s.metrics.CacheMiss(s.exchanges.Name())

	quote, err := s.aggregator.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	s.exchanges.Set(exchangeKey, quote)
	return quote, nil
}

// Caches 供状态接口汇总统计
func (s *Service) Caches() []cache.StatsProvider {
	return []cache.StatsProvider{s.history, s.snapshot, s.exchanges}
}
