package exchange

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/adaptbtc/adaptbtc-server/internal/upstream"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const defaultPoolSize = 16

// Quote 单个交易所报价
type Quote struct {
	Exchange string  `json:"exchange"`
	Price    float64 `json:"price"`
	Source   string  `json:"source"`
}

// Result 单个来源的查询结果，Quote 与 Err 二选一
type Result struct {
	Name  string
	Quote *Quote
	Err   error
}

// Label "<Name>: <detail>"
func (r Result) Label() string {
	var ue *upstream.Error
	if errors.As(r.Err, &ue) {
		return r.Name + ": " + ue.Detail()
	}
	return r.Name + ": " + r.Err.Error()
}

// AggregatedQuote 聚合报价
type AggregatedQuote struct {
	Exchanges []Quote  `json:"exchanges"`
	Errors    []string `json:"errors"`
	Spread    Spread   `json:"spread"`
	Timestamp float64  `json:"timestamp"` // unix 秒
}

// Metrics 聚合过程指标
type Metrics interface {
	SourceFailed(name string)
	AggregationFailed()
}

type noopMetrics struct{}

func (noopMetrics) SourceFailed(string) {}
func (noopMetrics) AggregationFailed()  {}

type AggregatorOption func(*Aggregator)

// WithPoolSize 并发查询协程池大小
func WithPoolSize(size int) AggregatorOption {
	return func(a *Aggregator) {
		if size > 0 {
			a.poolSize = size
		}
	}
}

func WithAggregatorMetrics(m Metrics) AggregatorOption {
	return func(a *Aggregator) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithNow 替换时间源
func WithNow(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

// Aggregator 并发查询所有来源并计算价差
type Aggregator struct {
	sources  []Source
	pool     *ants.Pool
	poolSize int
	metrics  Metrics
	now      func() time.Time
	log      zerolog.Logger
}

func NewAggregator(sources []Source, opts ...AggregatorOption) (*Aggregator, error) {
	a := &Aggregator{
		sources:  sources,
		poolSize: defaultPoolSize,
		metrics:  noopMetrics{},
		now:      time.Now,
		log:      logger.Component("exchange"),
	}
	for _, opt := range opts {
		opt(a)
	}

	pool, err := ants.NewPool(a.poolSize,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			a.log.Error().Interface("panic", p).Msg("exchange query panic")
		}),
	)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	return a, nil
}

func (a *Aggregator) Sources() []Source {
	return a.sources
}

// Collect 并发查询所有来源，结果按来源顺序返回
func (a *Aggregator) Collect(ctx context.Context) []Result {
	results := make([]Result, len(a.sources))
	var wg sync.WaitGroup

	for i, src := range a.sources {
		results[i] = Result{Name: src.Name(), Err: errors.New("query did not complete")}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = query(ctx, src)
		}
		if err := a.pool.Submit(task); err != nil {
			// 池满或已关闭时在当前协程执行
			a.log.Debug().Err(err).Str("source", src.Name()).Msg("pool submit failed, querying inline")
			task()
		}
	}
	wg.Wait()
	return results
}

func query(ctx context.Context, src Source) Result {
	price, err := src.FetchPrice(ctx)
	if err != nil {
		return Result{Name: src.Name(), Err: err}
	}
	return Result{
		Name:  src.Name(),
		Quote: &Quote{Exchange: src.Name(), Price: price, Source: src.Description()},
	}
}

// Aggregate 查询所有来源；单个来源失败记入 Errors，全部失败返回 *AggregationError。
// 非上游类错误（编程错误等）直接返回，不降级为错误字符串。
func (a *Aggregator) Aggregate(ctx context.Context) (*AggregatedQuote, error) {
	results := a.Collect(ctx)

	quotes := make([]Quote, 0, len(results))
	prices := make([]float64, 0, len(results))
	errs := make([]string, 0)

	for _, r := range results {
		if r.Err == nil {
			quotes = append(quotes, *r.Quote)
			prices = append(prices, r.Quote.Price)
			continue
		}
		var ue *upstream.Error
		if !errors.As(r.Err, &ue) {
			a.log.Error().Err(r.Err).Str("source", r.Name).Msg("unexpected exchange source error")
			return nil, r.Err
		}
		a.metrics.SourceFailed(r.Name)
		errs = append(errs, r.Label())
	}

	spread, ok := ComputeSpread(prices)
	if !ok {
		a.metrics.AggregationFailed()
		a.log.Warn().Strs("errors", errs).Msg("all exchange sources failed")
		return nil, &AggregationError{Errors: errs}
	}

	a.log.Debug().
		Int("quotes", len(quotes)).
		Int("errors", len(errs)).
		Float64("low", spread.Low).
		Float64("high", spread.High).
		Msg("exchange prices aggregated")

	return &AggregatedQuote{
		Exchanges: quotes,
		Errors:    errs,
		Spread:    spread,
		Timestamp: float64(a.now().UnixNano()) / 1e9,
	}, nil
}

// Release 关闭协程池
func (a *Aggregator) Release() {
	a.pool.Release()
}
