package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// describeTable renders per-column descriptive statistics: numeric columns
// get count/mean/std/min/max, everything else count/unique/top/freq.
func describeTable(table *Table) string {
	var b strings.Builder
	for i, col := range table.Columns {
		writeColumnStats(&b, col, columnValues(table.Rows, i))
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeColumnStats(b *strings.Builder, name string, values []string) {
	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}

	fmt.Fprintf(b, "%s:\n", name)
	if len(nonEmpty) == 0 {
		fmt.Fprintf(b, "  count: 0\n")
		return
	}

	if nums, ok := parseNumeric(nonEmpty); ok {
		mean, std := meanStd(nums)
		minVal, maxVal := minMax(nums)
		fmt.Fprintf(b, "  count: %d\n", len(nums))
		fmt.Fprintf(b, "  mean: %s\n", formatFloat(mean))
		fmt.Fprintf(b, "  std: %s\n", formatFloat(std))
		fmt.Fprintf(b, "  min: %s\n", formatFloat(minVal))
		fmt.Fprintf(b, "  max: %s\n", formatFloat(maxVal))
		return
	}

	top, freq, unique := topValue(nonEmpty)
	fmt.Fprintf(b, "  count: %d\n", len(nonEmpty))
	fmt.Fprintf(b, "  unique: %d\n", unique)
	fmt.Fprintf(b, "  top: %s\n", top)
	fmt.Fprintf(b, "  freq: %d\n", freq)
}

func parseNumeric(values []string) ([]float64, bool) {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, false
		}
		nums = append(nums, f)
	}
	return nums, len(nums) > 0
}

func meanStd(nums []float64) (float64, float64) {
	var sum float64
	for _, n := range nums {
		sum += n
	}
	mean := sum / float64(len(nums))

	if len(nums) < 2 {
		return mean, 0
	}
	var sq float64
	for _, n := range nums {
		d := n - mean
		sq += d * d
	}
	// sample standard deviation
	return mean, math.Sqrt(sq / float64(len(nums)-1))
}

func minMax(nums []float64) (float64, float64) {
	minVal, maxVal := nums[0], nums[0]
	for _, n := range nums[1:] {
		if n < minVal {
			minVal = n
		}
		if n > maxVal {
			maxVal = n
		}
	}
	return minVal, maxVal
}

func topValue(values []string) (string, int, int) {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	// Deterministic tie-break keeps output stable across runs.
	sort.Strings(keys)

	top, freq := "", 0
	for _, k := range keys {
		if counts[k] > freq {
			top, freq = k, counts[k]
		}
	}
	return top, freq, len(counts)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
