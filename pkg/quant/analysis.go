package quant

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// horizons are the forward-return windows checked after a big move.
var horizons = []struct {
	Label string
	Days  int
}{
	{"1D", 1},
	{"1W", 7},
	{"4W", 28},
	{"12W", 84},
	{"26W", 182},
	{"52W", 364},
}

// HorizonLabels returns the horizon column order for rendering.
func HorizonLabels() []string {
	labels := make([]string, len(horizons))
	for i, h := range horizons {
		labels[i] = h.Label
	}
	return labels
}

// ChangeSet holds the day-over-day changes selected by a percentile cut.
type ChangeSet struct {
	Percentile float64
	P          decimal.Decimal
	Sorted     []decimal.Decimal
	Dates      []time.Time
}

// EffectRow is the forward effect of one selected move. Returns is keyed by
// horizon label; a horizon past the end of the series is absent.
type EffectRow struct {
	Index   string
	Date    time.Time
	Close   decimal.Decimal
	Drop    decimal.Decimal
	Returns map[string]decimal.Decimal
}

// ComputeChanges fills the day-over-day percentage change column. The first
// day has no predecessor and gets 0.
func (s *Series) ComputeChanges() []decimal.Decimal {
	changes := make([]decimal.Decimal, len(s.Points))
	for i := 1; i < len(s.Points); i++ {
		old := s.Points[i-1].Close
		if old.IsZero() {
			continue
		}
		changes[i] = s.Points[i].Close.Sub(old).Div(old).Mul(hundred)
	}
	s.Changes = changes
	return changes
}

// percentile computes the p-th percentile of ascending-sorted values with
// linear interpolation between ranks, matching numpy's default.
func percentile(sorted []decimal.Decimal, p float64) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(n-1)
	lower := int(rank)
	if lower >= n-1 {
		return sorted[n-1]
	}
	frac := decimal.NewFromFloat(rank - float64(lower))
	return sorted[lower].Add(sorted[lower+1].Sub(sorted[lower]).Mul(frac))
}

// BiggestChanges selects the days whose change falls in the given
// percentile's tail. At or below the 50th percentile the biggest declines
// are selected (change <= P); above it the biggest rises (change > P).
func (s *Series) BiggestChanges(pct float64) (*ChangeSet, error) {
	if pct <= 0 || pct > 100 {
		return nil, fmt.Errorf("percentile %v outside (0, 100]", pct)
	}
	if s.Changes == nil {
		s.ComputeChanges()
	}

	sorted := make([]decimal.Decimal, len(s.Changes))
	copy(sorted, s.Changes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	set := &ChangeSet{
		Percentile: pct,
		P:          percentile(sorted, pct),
		Sorted:     sorted,
	}

	for i, change := range s.Changes {
		if pct <= 50 {
			if change.LessThanOrEqual(set.P) {
				set.Dates = append(set.Dates, s.Points[i].Date)
			}
		} else if change.GreaterThan(set.P) {
			set.Dates = append(set.Dates, s.Points[i].Date)
		}
	}

	return set, nil
}

// Effect computes forward returns from each selected date. Zero or missing
// closes on the target day are skipped forward until a real close turns up;
// a horizon whose target lies past the last date is not available.
func (s *Series) Effect(dates []time.Time) []EffectRow {
	if len(s.Points) == 0 {
		return nil
	}
	if s.Changes == nil {
		s.ComputeChanges()
	}

	byDate := make(map[string]int, len(s.Points))
	for i, p := range s.Points {
		byDate[p.Date.Format(dateLayout)] = i
	}
	last := s.Points[len(s.Points)-1].Date

	var rows []EffectRow
	for _, date := range dates {
		base, ok := byDate[date.Format(dateLayout)]
		if !ok || s.Points[base].Close.IsZero() {
			continue
		}

		row := EffectRow{
			Index:   s.Index,
			Date:    date,
			Close:   s.Points[base].Close,
			Drop:    s.Changes[base],
			Returns: make(map[string]decimal.Decimal, len(horizons)),
		}

		for _, h := range horizons {
			target := date.AddDate(0, 0, h.Days)
			if target.After(last) {
				continue
			}

			for !target.After(last) {
				ix, ok := byDate[target.Format(dateLayout)]
				if ok && !s.Points[ix].Close.IsZero() {
					old := row.Close
					row.Returns[h.Label] = s.Points[ix].Close.Sub(old).Div(old).Mul(hundred)
					break
				}
				target = target.AddDate(0, 0, 1)
			}
		}

		rows = append(rows, row)
	}

	return rows
}

// Prepare runs the whole pipeline over the given series: changes, the
// percentile cut, and the forward effects. index narrows the run to one
// series, "All" runs every one in stable order.
func Prepare(series map[string]*Series, pct float64, index string) ([]EffectRow, error) {
	if pct <= 0 || pct > 100 {
		return nil, fmt.Errorf("percentile %v outside (0, 100]", pct)
	}

	var keys []string
	if index != "All" {
		if _, ok := series[index]; !ok {
			return nil, fmt.Errorf("index %q not available in the data", index)
		}
		keys = []string{index}
	} else {
		for key := range series {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}

	var rows []EffectRow
	for _, key := range keys {
		s := series[key]
		if len(s.Points) == 0 {
			continue
		}
		set, err := s.BiggestChanges(pct)
		if err != nil {
			return nil, err
		}
		rows = append(rows, s.Effect(set.Dates)...)
	}

	return rows, nil
}
