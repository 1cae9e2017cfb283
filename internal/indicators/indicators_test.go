package indicators

import (
	"math"
	"testing"
	"time"
)

func makeCandles(closes []float64) []Candle {
	candles := make([]Candle, len(closes))
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = Candle{
			OpenTime:  base.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000,
			CloseTime: base.Add(time.Duration(i+1) * time.Minute),
		}
	}
	return candles
}

func TestSMA(t *testing.T) {
	candles := makeCandles([]float64{10, 20, 30, 40, 50})

	got := SMA(candles, 5)
	if got != 30 {
		t.Errorf("SMA(5) = %v, want 30", got)
	}

	got = SMA(candles, 2)
	if got != 45 {
		t.Errorf("SMA(2) = %v, want 45", got)
	}
}

func TestSMAInsufficientData(t *testing.T) {
	candles := makeCandles([]float64{10, 20})
	if got := SMA(candles, 5); got != 0 {
		t.Errorf("SMA with short history = %v, want 0", got)
	}
	if got := SMA(candles, 0); got != 0 {
		t.Errorf("SMA with zero period = %v, want 0", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	if got := RSI(makeCandles(closes), 14); got != 100 {
		t.Errorf("RSI all gains = %v, want 100", got)
	}
}

func TestRSINeutralOnShortHistory(t *testing.T) {
	if got := RSI(makeCandles([]float64{1, 2, 3}), 14); got != 50 {
		t.Errorf("RSI short history = %v, want 50", got)
	}
}

func TestATRConstantRange(t *testing.T) {
	// Every candle has High-Low = 1.0 and no gaps, so TR = 1 for each bar.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	got := ATR(makeCandles(closes), 14)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("ATR = %v, want 1.0", got)
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 50
	}
	b := Bollinger(makeCandles(closes), 20, 2)
	if b.Upper != 50 || b.Middle != 50 || b.Lower != 50 {
		t.Errorf("flat Bollinger = %+v, want all 50", b)
	}
	if b.BandwidthPercent() != 0 {
		t.Errorf("flat bandwidth = %v, want 0", b.BandwidthPercent())
	}
}

func TestHighestHighExcludesCurrentBar(t *testing.T) {
	candles := makeCandles([]float64{10, 11, 12, 13, 200})
	// lookback 3 covers bars with closes 11,12,13 (highs +0.5)
	got := HighestHigh(candles, 3)
	if got != 13.5 {
		t.Errorf("HighestHigh = %v, want 13.5", got)
	}
}

func TestLowestLowExcludesCurrentBar(t *testing.T) {
	candles := makeCandles([]float64{10, 9, 8, 7, 1})
	got := LowestLow(candles, 3)
	if got != 6.5 {
		t.Errorf("LowestLow = %v, want 6.5", got)
	}
}

func TestAverageVolumeExcludesCurrentBar(t *testing.T) {
	candles := makeCandles([]float64{10, 10, 10, 10})
	candles[len(candles)-1].Volume = 99999
	got := AverageVolume(candles, 3)
	if got != 1000 {
		t.Errorf("AverageVolume = %v, want 1000", got)
	}
}

func TestSupportResistance(t *testing.T) {
	candles := makeCandles([]float64{10, 30, 20})
	support, resistance := SupportResistance(candles, 3)
	if support != 9.5 {
		t.Errorf("support = %v, want 9.5", support)
	}
	if resistance != 30.5 {
		t.Errorf("resistance = %v, want 30.5", resistance)
	}
}
