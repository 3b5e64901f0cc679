// Package stats implements the time-weighted counter used by every
// process primitive to expose occupancy/utilization statistics.
package stats

import (
	"math"
	"sort"

	"github.com/desim/desim/engine"
)

// CountAtTime is one (time, count) history sample.
type CountAtTime struct {
	Time  float64
	Count int
}

// TimeWeightedCounter tracks a piecewise-constant integer-valued count
// over simulated time. The queue (occupancy), the server (in-service
// count), and the pool (busy count) each keep one of these to derive utilization, percentiles, and histograms without
// duplicating the accumulation logic.
type TimeWeightedCounter struct {
	initialTime float64
	currentTime float64
	currentCount int

	totalActiveDuration       float64
	cumulativeCountTimeProduct float64
	totalIncrementObserved    float64
	totalDecrementObserved    float64

	timePerCount map[int]float64

	keepHistory bool
	history     []CountAtTime
}

// New creates a TimeWeightedCounter seeded at (initialTime, initialCount).
// keepHistory enables the optional (time, count) history list.
func New(initialTime float64, initialCount int, keepHistory bool) *TimeWeightedCounter {
	c := &TimeWeightedCounter{
		initialTime:  initialTime,
		currentTime:  initialTime,
		currentCount: initialCount,
		timePerCount: make(map[int]float64),
		keepHistory:  keepHistory,
	}
	if keepHistory {
		c.history = append(c.history, CountAtTime{Time: initialTime, Count: initialCount})
	}
	return c
}

// ObserveCount records that the count became `count` as of `time`.
// Requires time >= CurrentTime.
func (c *TimeWeightedCounter) ObserveCount(count int, time float64) error {
	if time < c.currentTime {
		return engine.ErrInvalidArgument
	}
	duration := time - c.currentTime
	c.totalActiveDuration += duration
	c.cumulativeCountTimeProduct += duration * float64(c.currentCount)
	c.timePerCount[round(c.currentCount)] += duration

	delta := count - c.currentCount
	if delta > 0 {
		c.totalIncrementObserved += float64(delta)
	} else if delta < 0 {
		c.totalDecrementObserved += float64(-delta)
	}

	c.currentCount = count
	c.currentTime = time

	if c.keepHistory {
		c.history = append(c.history, CountAtTime{Time: time, Count: count})
	}
	return nil
}

// ObserveChange is ObserveCount(CurrentCount()+delta, time).
func (c *TimeWeightedCounter) ObserveChange(delta int, time float64) error {
	return c.ObserveCount(c.currentCount+delta, time)
}

// WarmedUp resets all totals and TimePerCount, re-seeding at
// (time, countAtWarmup). If history is enabled it is cleared and reseeded.
func (c *TimeWeightedCounter) WarmedUp(time float64, countAtWarmup int) {
	c.initialTime = time
	c.currentTime = time
	c.currentCount = countAtWarmup
	c.totalActiveDuration = 0
	c.cumulativeCountTimeProduct = 0
	c.totalIncrementObserved = 0
	c.totalDecrementObserved = 0
	c.timePerCount = make(map[int]float64)
	if c.keepHistory {
		c.history = c.history[:0]
		c.history = append(c.history, CountAtTime{Time: time, Count: countAtWarmup})
	}
}

// CurrentCount returns the most recently observed count.
func (c *TimeWeightedCounter) CurrentCount() int { return c.currentCount }

// CurrentTime returns the most recently observed time.
func (c *TimeWeightedCounter) CurrentTime() float64 { return c.currentTime }

// TotalActiveDuration returns CurrentTime - InitialTime.
func (c *TimeWeightedCounter) TotalActiveDuration() float64 { return c.totalActiveDuration }

// History returns the recorded (time, count) samples, or nil if history
// tracking was disabled at construction.
func (c *TimeWeightedCounter) History() []CountAtTime { return c.history }

// AverageCount is CumulativeCountTimeProduct / TotalActiveDuration, or
// CurrentCount when no duration has elapsed yet.
func (c *TimeWeightedCounter) AverageCount() float64 {
	if c.totalActiveDuration == 0 {
		return float64(c.currentCount)
	}
	return c.cumulativeCountTimeProduct / c.totalActiveDuration
}

// IncrementRate is TotalIncrementObserved / TotalActiveDuration, 0 if no duration.
func (c *TimeWeightedCounter) IncrementRate() float64 {
	if c.totalActiveDuration == 0 {
		return 0
	}
	return c.totalIncrementObserved / c.totalActiveDuration
}

// DecrementRate is TotalDecrementObserved / TotalActiveDuration, 0 if no duration.
func (c *TimeWeightedCounter) DecrementRate() float64 {
	if c.totalActiveDuration == 0 {
		return 0
	}
	return c.totalDecrementObserved / c.totalActiveDuration
}

// AverageSojournTime is Little's-Law estimate AverageCount / DecrementRate,
// 0 when the denominator is zero or non-finite.
func (c *TimeWeightedCounter) AverageSojournTime() float64 {
	rate := c.DecrementRate()
	if rate == 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return 0
	}
	return c.AverageCount() / rate
}

// PercentileByTime walks the sorted TimePerCount keys accumulating time
// until the accumulated value reaches p*TotalActiveDuration/100, and
// returns that key. Returns 0 if no data has been observed. p must be in
// [0, 100].
func (c *TimeWeightedCounter) PercentileByTime(p float64) (int, error) {
	if p < 0 || p > 100 {
		return 0, engine.ErrInvalidArgument
	}
	if len(c.timePerCount) == 0 || c.totalActiveDuration == 0 {
		return 0, nil
	}

	keys := sortedKeys(c.timePerCount)
	threshold := p * c.totalActiveDuration / 100
	var accumulated float64
	for _, k := range keys {
		accumulated += c.timePerCount[k]
		if accumulated >= threshold {
			return k, nil
		}
	}
	return keys[len(keys)-1], nil
}

// HistogramBin is one bin of a generated histogram.
type HistogramBin struct {
	Lo                   int
	Hi                   int
	Time                 float64
	Probability          float64
	CumulativeProbability float64
}

// Histogram generates bins of width binWidth spanning
// [floor(minKey/binWidth)*binWidth, maxKey]. binWidth must be > 0.
func (c *TimeWeightedCounter) Histogram(binWidth int) ([]HistogramBin, error) {
	if binWidth <= 0 {
		return nil, engine.ErrInvalidArgument
	}
	if len(c.timePerCount) == 0 {
		return nil, nil
	}

	keys := sortedKeys(c.timePerCount)
	minKey, maxKey := keys[0], keys[len(keys)-1]

	lo := floorDiv(minKey, binWidth) * binWidth

	var bins []HistogramBin
	var cumulative float64
	for start := lo; start <= maxKey; start += binWidth {
		end := start + binWidth
		var sum float64
		for _, k := range keys {
			if k >= start && k < end {
				sum += c.timePerCount[k]
			}
		}
		var prob float64
		if c.totalActiveDuration > 0 {
			prob = sum / c.totalActiveDuration
		}
		cumulative += prob
		bins = append(bins, HistogramBin{
			Lo:                    start,
			Hi:                    end,
			Time:                  sum,
			Probability:           prob,
			CumulativeProbability: cumulative,
		})
	}
	return bins, nil
}

func round(f int) int { return f } // counts are already integers; named for symmetry with the float-valued stats above

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
