package exchange

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Spread 各交易所报价的价差
type Spread struct {
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
	BasisPoints float64 `json:"basis_points"`
	Percent     float64 `json:"percent"`
}

// ComputeSpread 计算价差，prices 不能为空
//
//	mid          = (low+high)/2，low 或 high 为 0 时取 0
//	basis_points = (high-low)/mid*10000，保留 2 位；mid 为 0 时为 0
//	percent      = (high-low)/low*100，保留 4 位；low 为 0 时为 0
//
// 全部按 float64 计算，舍入作用在计算结果的二进制值上
func ComputeSpread(prices []float64) (Spread, bool) {
	if len(prices) == 0 {
		return Spread{}, false
	}

	low, high := prices[0], prices[0]
	for _, p := range prices[1:] {
		low = min(low, p)
		high = max(high, p)
	}

	diff := high - low
	mid := 0.0
	if low != 0 && high != 0 {
		mid = (low + high) / 2
	}

	var bps, pct float64
	if mid != 0 {
		bps = roundTo(diff/mid*10000, 2)
	}
	if low != 0 {
		pct = roundTo(diff/low*100, 4)
	}

	return Spread{
		Low:         low,
		High:        high,
		BasisPoints: bps,
		Percent:     pct,
	}, true
}

// roundTo 按 v 的精确二进制值舍入到 places 位，恰好一半时取偶数
func roundTo(v float64, places int) float64 {
	return decimal.RequireFromString(strconv.FormatFloat(v, 'f', places, 64)).InexactFloat64()
}
