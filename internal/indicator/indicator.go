package indicator

import (
	"math"

	"autotrader/internal/domain"

	"gonum.org/v1/gonum/stat"
)

const (
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	bollingerPeriod  = 20
	bollingerStdDevs = 2.0
	levelWindow      = 20
	volumeWindow     = 20
	momentumLookback = 5
)

// SMA is the arithmetic mean of the last n values.
func SMA(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}
	return stat.Mean(values[len(values)-n:], nil), true
}

// EMA seeds with the mean of the first n values, then applies
// ema = v*k + ema*(1-k) with k = 2/(n+1) over the rest.
func EMA(values []float64, n int) (float64, bool) {
	series := emaSeries(values, n)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// emaSeries returns EMA values aligned to values[n-1:].
func emaSeries(values []float64, n int) []float64 {
	if n <= 0 || len(values) < n {
		return nil
	}
	k := 2.0 / (float64(n) + 1.0)
	out := make([]float64, 0, len(values)-n+1)
	ema := stat.Mean(values[:n], nil)
	out = append(out, ema)
	for _, v := range values[n:] {
		ema = v*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// RSI uses simple averages of the up and down moves over the last n deltas.
// A window with no losses reads 100 and one with no moves at all reads 50.
func RSI(closes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n+1 {
		return 0, false
	}
	window := closes[len(closes)-n-1:]
	var gainSum, lossSum float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(n)
	avgLoss := lossSum / float64(n)
	return rsiFromAvg(avgGain, avgLoss), true
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACD returns EMA12-EMA26 as the line. The signal is a true EMA9 of the
// line series; when the window is too short for it, Signal and Histogram
// stay nil rather than echoing the line.
func MACD(closes []float64) (domain.MACD, bool) {
	fast := emaSeries(closes, macdFastPeriod)
	slow := emaSeries(closes, macdSlowPeriod)
	if len(slow) == 0 {
		return domain.MACD{}, false
	}

	offset := macdSlowPeriod - macdFastPeriod
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}

	out := domain.MACD{Line: line[len(line)-1]}
	if signal := emaSeries(line, macdSignalPeriod); len(signal) > 0 {
		sig := signal[len(signal)-1]
		hist := out.Line - sig
		out.Signal = &sig
		out.Histogram = &hist
	}
	return out, true
}

// Bollinger bands around SMA(n) at k population standard deviations.
func Bollinger(closes []float64, n int, k float64) (domain.Bollinger, bool) {
	if n <= 0 || len(closes) < n {
		return domain.Bollinger{}, false
	}
	window := closes[len(closes)-n:]
	mean, std := meanStd(window)
	return domain.Bollinger{
		Upper:  mean + k*std,
		Middle: mean,
		Lower:  mean - k*std,
	}, true
}

// SupportResistance is the lowest low and highest high of the last n points.
// A short series uses every point it has.
func SupportResistance(points []domain.PricePoint, n int) (domain.SupportResistance, bool) {
	if len(points) == 0 || n <= 0 {
		return domain.SupportResistance{}, false
	}
	if len(points) > n {
		points = points[len(points)-n:]
	}
	support := math.Inf(1)
	resistance := math.Inf(-1)
	for _, p := range points {
		low, high := p.Low, p.High
		if low == 0 {
			low = p.Close
		}
		if high == 0 {
			high = p.Close
		}
		support = math.Min(support, low)
		resistance = math.Max(resistance, high)
	}
	return domain.SupportResistance{Support: support, Resistance: resistance}, true
}

func VolumeAverage(points []domain.PricePoint, n int) (float64, bool) {
	if n <= 0 || len(points) < n {
		return 0, false
	}
	return stat.Mean(Volumes(points[len(points)-n:]), nil), true
}

// Momentum is the percent change of the last close against the close
// lookback points earlier.
func Momentum(closes []float64, lookback int) (float64, bool) {
	if lookback <= 0 || len(closes) < lookback+1 {
		return 0, false
	}
	base := closes[len(closes)-1-lookback]
	if base == 0 {
		return 0, false
	}
	return (closes[len(closes)-1] - base) / base * 100, true
}

// Compute fills every indicator the series is long enough for.
func Compute(points []domain.PricePoint) domain.Indicators {
	closes := Closes(points)
	out := domain.Indicators{Points: len(points)}
	if len(points) > 0 {
		out.LastClose = points[len(points)-1].Close
		out.LastVolume = points[len(points)-1].Volume
	}

	if v, ok := SMA(closes, 20); ok {
		out.SMA20 = &v
	}
	if v, ok := SMA(closes, 50); ok {
		out.SMA50 = &v
	}
	if v, ok := EMA(closes, macdFastPeriod); ok {
		out.EMA12 = &v
	}
	if v, ok := EMA(closes, macdSlowPeriod); ok {
		out.EMA26 = &v
	}
	if v, ok := RSI(closes, rsiPeriod); ok {
		out.RSI = &v
	}
	if v, ok := MACD(closes); ok {
		out.MACD = &v
	}
	if v, ok := Bollinger(closes, bollingerPeriod, bollingerStdDevs); ok {
		out.Bollinger = &v
	}
	if v, ok := SupportResistance(points, levelWindow); ok {
		out.SupportResistance = &v
	}
	if v, ok := VolumeAverage(points, volumeWindow); ok {
		out.VolumeAvg = &v
	}
	if v, ok := Momentum(closes, momentumLookback); ok {
		out.Momentum = &v
	}
	return out
}

func Closes(points []domain.PricePoint) []float64 {
	values := make([]float64, len(points))
	for i := range points {
		values[i] = points[i].Close
	}
	return values
}

func Volumes(points []domain.PricePoint) []float64 {
	values := make([]float64, len(points))
	for i := range points {
		values[i] = points[i].Volume
	}
	return values
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	return mean, math.Sqrt(variance)
}
