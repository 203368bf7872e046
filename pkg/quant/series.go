package quant

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"quantipy/pkg/symbols"
)

const dateLayout = "2006-01-02"

// Point is one trading day of an index.
type Point struct {
	Date  time.Time
	Close decimal.Decimal
}

// Series is the adjusted-close history of one index, ordered by date
// ascending. Changes is filled by ComputeChanges and runs parallel to
// Points.
type Series struct {
	Index   string
	Points  []Point
	Changes []decimal.Decimal
}

// Summary describes the span and range of one series.
type Summary struct {
	Index string
	First time.Time
	Last  time.Time
	Min   decimal.Decimal
	Max   decimal.Decimal
}

// ReadHistory parses one exported history CSV. The file needs at least a
// Date and an Adj Close column; days with a missing close are filled by
// linear interpolation between their neighbours, leading and trailing gaps
// are dropped.
func ReadHistory(path string) (*Series, error) {
	index, err := symbols.Extract(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch name {
		case "Date":
			dateCol = i
		case "Adj Close":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("%s: need Date and Adj Close columns, got %v", path, header)
	}

	type row struct {
		date    time.Time
		close   decimal.Decimal
		missing bool
	}
	var rows []row

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		date, err := time.Parse(dateLayout, record[dateCol])
		if err != nil {
			return nil, fmt.Errorf("%s: bad date %q: %w", path, record[dateCol], err)
		}

		r := row{date: date}
		if value := record[closeCol]; value == "" || value == "null" {
			r.missing = true
		} else {
			r.close, err = decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("%s: bad close %q: %w", path, value, err)
			}
		}
		rows = append(rows, r)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	// Trim gaps at the edges, there is nothing to interpolate against.
	for len(rows) > 0 && rows[0].missing {
		rows = rows[1:]
	}
	for len(rows) > 0 && rows[len(rows)-1].missing {
		rows = rows[:len(rows)-1]
	}

	// Linear interpolation over interior gaps.
	for i := 0; i < len(rows); i++ {
		if !rows[i].missing {
			continue
		}
		prev := i - 1
		next := i
		for rows[next].missing {
			next++
		}
		span := decimal.NewFromInt(int64(next - prev))
		step := rows[next].close.Sub(rows[prev].close).Div(span)
		for j := prev + 1; j < next; j++ {
			rows[j].close = rows[prev].close.Add(step.Mul(decimal.NewFromInt(int64(j - prev))))
			rows[j].missing = false
		}
	}

	s := &Series{Index: index, Points: make([]Point, 0, len(rows))}
	for _, r := range rows {
		s.Points = append(s.Points, Point{Date: r.date, Close: r.close})
	}
	return s, nil
}

// Summarise reports first/last date and min/max close of the series.
func (s *Series) Summarise() Summary {
	sum := Summary{Index: s.Index}
	if len(s.Points) == 0 {
		return sum
	}

	sum.First = s.Points[0].Date
	sum.Last = s.Points[len(s.Points)-1].Date
	sum.Min = s.Points[0].Close
	sum.Max = s.Points[0].Close
	for _, p := range s.Points[1:] {
		if p.Close.LessThan(sum.Min) {
			sum.Min = p.Close
		}
		if p.Close.GreaterThan(sum.Max) {
			sum.Max = p.Close
		}
	}
	return sum
}
