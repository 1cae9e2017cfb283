// Package indicators provides technical indicator math over OHLCV candles.
package indicators

import (
	"math"
	"time"
)

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
}

// SMA calculates the Simple Moving Average of closes.
func SMA(candles []Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average of closes.
func EMA(candles []Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	// Seed with the SMA of the first period
	ema := SMA(candles[:period], period)
	multiplier := 2.0 / float64(period+1)

	for i := period; i < len(candles); i++ {
		ema = (candles[i].Close * multiplier) + (ema * (1 - multiplier))
	}
	return ema
}

// RSI calculates the Relative Strength Index.
func RSI(candles []Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 50.0 // neutral
	}

	gains := 0.0
	losses := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ATR calculates the Average True Range.
func ATR(candles []Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		high := candles[i].High
		low := candles[i].Low
		prevClose := candles[i-1].Close

		tr := high - low
		if d := math.Abs(high - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(low - prevClose); d > tr {
			tr = d
		}
		sum += tr
	}
	return sum / float64(period)
}

// BollingerBands holds Bollinger Band values for the latest bar.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger calculates Bollinger Bands from closes.
func Bollinger(candles []Candle, period int, stdDevMultiplier float64) BollingerBands {
	if period <= 0 || len(candles) < period {
		return BollingerBands{}
	}

	middle := SMA(candles, period)

	variance := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		diff := candles[i].Close - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return BollingerBands{
		Upper:  middle + stdDevMultiplier*stdDev,
		Middle: middle,
		Lower:  middle - stdDevMultiplier*stdDev,
	}
}

// BandwidthPercent returns Bollinger bandwidth as a percentage of the middle band.
func (b BollingerBands) BandwidthPercent() float64 {
	if b.Middle == 0 {
		return 0
	}
	return (b.Upper - b.Lower) / b.Middle * 100
}

// MACDHistogram calculates the MACD histogram with a proper signal-line EMA
// computed over the MACD series.
func MACDHistogram(candles []Candle, fastPeriod, slowPeriod, signalPeriod int) float64 {
	if len(candles) < slowPeriod+signalPeriod {
		return 0
	}

	// Build the MACD series over the window that has enough history
	macdSeries := make([]float64, 0, len(candles)-slowPeriod+1)
	for i := slowPeriod; i <= len(candles); i++ {
		window := candles[:i]
		macdSeries = append(macdSeries, EMA(window, fastPeriod)-EMA(window, slowPeriod))
	}
	if len(macdSeries) < signalPeriod {
		return 0
	}

	// Signal line: EMA of the MACD series
	signal := 0.0
	for _, v := range macdSeries[:signalPeriod] {
		signal += v
	}
	signal /= float64(signalPeriod)

	multiplier := 2.0 / float64(signalPeriod+1)
	for i := signalPeriod; i < len(macdSeries); i++ {
		signal = macdSeries[i]*multiplier + signal*(1-multiplier)
	}

	return macdSeries[len(macdSeries)-1] - signal
}

// AverageVolume calculates average volume over the trailing period,
// excluding the most recent bar.
func AverageVolume(candles []Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	sum := 0.0
	for i := len(candles) - period - 1; i < len(candles)-1; i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period)
}

// HighestHigh returns the highest high over the trailing lookback,
// excluding the most recent bar.
func HighestHigh(candles []Candle, lookback int) float64 {
	if lookback <= 0 || len(candles) < lookback+1 {
		return 0
	}

	highest := candles[len(candles)-lookback-1].High
	for i := len(candles) - lookback; i < len(candles)-1; i++ {
		if candles[i].High > highest {
			highest = candles[i].High
		}
	}
	return highest
}

// LowestLow returns the lowest low over the trailing lookback,
// excluding the most recent bar.
func LowestLow(candles []Candle, lookback int) float64 {
	if lookback <= 0 || len(candles) < lookback+1 {
		return 0
	}

	lowest := candles[len(candles)-lookback-1].Low
	for i := len(candles) - lookback; i < len(candles)-1; i++ {
		if candles[i].Low < lowest {
			lowest = candles[i].Low
		}
	}
	return lowest
}

// SupportResistance finds the nearest support and resistance from recent
// highs and lows.
func SupportResistance(candles []Candle, lookback int) (support, resistance float64) {
	if lookback <= 0 || len(candles) < lookback {
		return 0, 0
	}

	window := candles[len(candles)-lookback:]
	support = window[0].Low
	resistance = window[0].High
	for _, c := range window {
		if c.Low < support {
			support = c.Low
		}
		if c.High > resistance {
			resistance = c.High
		}
	}
	return support, resistance
}
