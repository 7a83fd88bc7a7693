package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/Sternrassler/order-report/pkg/order"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// TopValues is the number of distinct values charted per group field.
const TopValues = 10

// Chart image size in pixels. It is embedded at 6x3 inches.
const (
	chartWidthPx  = 800
	chartHeightPx = 400
	barLabelMax   = 14
)

var skyBlue = drawing.ColorFromHex("87ceeb")

// ValueCount is the number of records holding one distinct value.
type ValueCount struct {
	Value string
	Count int
}

// TopValueCounts counts the distinct non-null values of field, most frequent
// first. Ties keep the order in which values first appear. At most n entries are returned.
func TopValueCounts(rs order.ResultSet, field string, n int) []ValueCount {
	index := make(map[string]int)
	var counts []ValueCount

	for _, v := range rs.Values(field) {
		key := v.String()
		if i, ok := index[key]; ok {
			counts[i].Count++
			continue
		}
		index[key] = len(counts)
		counts = append(counts, ValueCount{Value: key, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// renderBarChart draws counts as a PNG bar chart titled title.
func renderBarChart(title string, counts []ValueCount) ([]byte, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no values to chart")
	}

	maxCount := 0
	bars := make([]chart.Value, len(counts))
	for i, c := range counts {
		bars[i] = chart.Value{
			Label: truncateLabel(c.Value, barLabelMax),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: skyBlue, StrokeColor: skyBlue},
		}
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}

	ticks := countTicks(maxCount)
	spacing := 20
	barWidth := (chartWidthPx-120)/len(bars) - spacing
	if barWidth < 10 {
		barWidth = 10
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      chartWidthPx,
		Height:     chartHeightPx,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		YAxis: chart.YAxis{
			Name:  "Count",
			Range: &chart.ContinuousRange{Min: 0, Max: ticks[len(ticks)-1].Value},
			Ticks: ticks,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// countTicks returns whole-number ticks from 0 to at least max, about five steps.
func countTicks(max int) []chart.Tick {
	step := int(math.Ceil(float64(max) / 5))
	if step < 1 {
		step = 1
	}
	var ticks []chart.Tick
	for v := 0; ; v += step {
		ticks = append(ticks, chart.Tick{Value: float64(v), Label: order.FormatInt(int64(v))})
		if v >= max {
			break
		}
	}
	return ticks
}

func truncateLabel(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
