package indicator

import "math"

var nanValue = math.NaN()

// Series is a partial indicator series aligned to a price history. Values[k]
// belongs to history index Offset+k; indexes before Offset are undefined.
type Series struct {
	Name   string
	Offset int
	Values []float64
}

func (s Series) Len() int {
	return len(s.Values)
}

func (s Series) Empty() bool {
	return len(s.Values) == 0
}

// At returns the value at history index i and whether it is defined.
func (s Series) At(i int) (float64, bool) {
	k := i - s.Offset
	if k < 0 || k >= len(s.Values) {
		return 0, false
	}
	return s.Values[k], true
}

// collect evaluates fn for history indexes [from, n) and keeps the leading
// run of undefined values out of the series. Later non-finite values are
// stored as NaN so offsets stay aligned.
func collect(name string, from, n int, fn func(i int) float64) Series {
	s := Series{Name: name}
	if from < 0 {
		from = 0
	}
	for i := from; i < n; i++ {
		v := fn(i)
		finite := !math.IsNaN(v) && !math.IsInf(v, 0)
		if len(s.Values) == 0 {
			if !finite {
				continue
			}
			s.Offset = i
		}
		if !finite {
			v = math.NaN()
		}
		s.Values = append(s.Values, v)
	}
	return s
}
