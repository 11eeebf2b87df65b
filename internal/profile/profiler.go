package profile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/autoprep/internal/model"
)

// topValueCount is how many distinct values a profile retains per column.
const topValueCount = 10

// maxParallelColumns bounds the per-column fan-out.
const maxParallelColumns = 8

// Profiler computes dataset profiles. The zero value is not usable; call
// NewProfiler.
type Profiler struct {
	logger *slog.Logger
}

// NewProfiler creates a profiler. A nil logger falls back to slog.Default.
func NewProfiler(logger *slog.Logger) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Profiler{logger: logger}
}

// Profile computes a full profile of the dataset. It is deterministic for a
// given snapshot and never modifies the dataset. Columns are profiled
// concurrently; results keep dataset column order.
func (p *Profiler) Profile(ctx context.Context, dataset model.Dataset) (prof model.DatasetProfile, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("profiling panicked: %v", r)
		}
	}()

	if vErr := dataset.Validate(); vErr != nil {
		return model.DatasetProfile{}, fmt.Errorf("invalid dataset: %w", vErr)
	}

	start := time.Now()
	rows := dataset.RowCount()
	columns := make([]model.ColumnProfile, len(dataset.Columns))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelColumns)
	for i := range dataset.Columns {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			columns[i] = profileColumn(dataset.Columns[i])
			return nil
		})
	}
	if gErr := g.Wait(); gErr != nil {
		return model.DatasetProfile{}, gErr
	}

	totalNulls := 0
	typeCounts := make(map[model.ColumnType]int)
	for _, col := range columns {
		totalNulls += col.NullCount
		typeCounts[col.Type]++
	}
	overallMissing := 0.0
	if cells := rows * len(columns); cells > 0 {
		overallMissing = float64(totalNulls) / float64(cells)
	}

	p.logger.Debug("profiled dataset",
		"dataset", dataset.Name,
		"rows", rows,
		"columns", len(columns),
		"missing_rate", overallMissing,
		"duration", time.Since(start))

	return model.DatasetProfile{
		DatasetName:        dataset.Name,
		RowCount:           rows,
		ColumnCount:        len(columns),
		OverallMissingRate: overallMissing,
		TypeCounts:         typeCounts,
		Columns:            columns,
	}, nil
}

// ProfileColumn profiles a single column in isolation. Used for the
// before/after profiles attached to transformation steps.
func (p *Profiler) ProfileColumn(col model.Column) model.ColumnProfile {
	return profileColumn(col)
}

func profileColumn(col model.Column) model.ColumnProfile {
	rows := len(col.Cells)
	nulls := col.NullCount()

	distinct := make(map[string]int)
	for _, cell := range col.Cells {
		if !cell.Null {
			distinct[cell.Value]++
		}
	}

	prof := model.ColumnProfile{
		Name:          col.Name,
		Type:          col.Type,
		RowCount:      rows,
		NullCount:     nulls,
		DistinctCount: len(distinct),
	}
	if rows > 0 {
		prof.MissingRate = float64(nulls) / float64(rows)
	}
	prof.IDLike = DetectIDLike(col.Name, len(distinct), rows)

	switch col.Type {
	case model.TypeNumeric:
		values, _ := col.FloatValues()
		fillNumericStats(&prof, values)
	case model.TypeDatetime:
		fillDatetimeStats(&prof, col)
	case model.TypeText:
		fillTextStats(&prof, col)
		prof.TopValues = topValues(distinct)
	case model.TypeCategorical, model.TypeBoolean:
		prof.TopValues = topValues(distinct)
	}

	return prof
}

// fillNumericStats computes the numeric summary. All stats stay nil when no
// parseable values exist; std needs two values and skew needs three.
func fillNumericStats(prof *model.ColumnProfile, values []float64) {
	n := len(values)
	if n == 0 {
		return
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	prof.Min = ptr(sorted[0])
	prof.Max = ptr(sorted[n-1])
	prof.Mean = ptr(mean)
	prof.Median = ptr(quantile(sorted, 0.5))
	prof.Q25 = ptr(quantile(sorted, 0.25))
	prof.Q75 = ptr(quantile(sorted, 0.75))

	if n >= 2 {
		ss := 0.0
		for _, v := range values {
			d := v - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(n-1))
		prof.Std = ptr(std)

		if n >= 3 && std > 0 {
			m3 := 0.0
			for _, v := range values {
				d := v - mean
				m3 += d * d * d
			}
			m3 /= float64(n)
			popVar := ss / float64(n)
			g1 := m3 / math.Pow(popVar, 1.5)
			adj := math.Sqrt(float64(n)*float64(n-1)) / float64(n-2)
			prof.Skew = ptr(adj * g1)
		}
	}
}

func fillDatetimeStats(prof *model.ColumnProfile, col model.Column) {
	var minTS, maxTS time.Time
	seen := false
	for _, cell := range col.Cells {
		if cell.Null {
			continue
		}
		ts, _, ok := ParseDatetime(cell.Value)
		if !ok {
			continue
		}
		if !seen || ts.Before(minTS) {
			minTS = ts
		}
		if !seen || ts.After(maxTS) {
			maxTS = ts
		}
		seen = true
	}
	if seen {
		prof.MinValue = minTS.Format(time.RFC3339)
		prof.MaxValue = maxTS.Format(time.RFC3339)
	}
}

func fillTextStats(prof *model.ColumnProfile, col model.Column) {
	count := 0
	total := 0
	minLen, maxLen := 0, 0
	for _, cell := range col.Cells {
		if cell.Null {
			continue
		}
		l := len([]rune(cell.Value))
		if count == 0 || l < minLen {
			minLen = l
		}
		if l > maxLen {
			maxLen = l
		}
		total += l
		count++
	}
	if count > 0 {
		prof.MinLen = ptrInt(minLen)
		prof.MaxLen = ptrInt(maxLen)
		prof.AvgLen = ptr(float64(total) / float64(count))
	}
}

// topValues returns the most frequent values, count descending with value
// order breaking ties so the result is stable.
func topValues(counts map[string]int) []model.ValueCount {
	if len(counts) == 0 {
		return nil
	}
	all := make([]model.ValueCount, 0, len(counts))
	for v, c := range counts {
		all = append(all, model.ValueCount{Value: v, Count: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Value < all[j].Value
	})
	if len(all) > topValueCount {
		all = all[:topValueCount]
	}
	return all
}

// quantile computes the p-quantile of sorted values with linear
// interpolation between closest ranks.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

func ptr(v float64) *float64 { return &v }

func ptrInt(v int) *int { return &v }
