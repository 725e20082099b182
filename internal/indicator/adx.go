package indicator

import (
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

var hundred = big.NewDecimal(100)

// directionalMovement is +DM (plus) or -DM of a bar against the previous bar.
type directionalMovement struct {
	series *techan.TimeSeries
	plus   bool
}

func (dm directionalMovement) Calculate(index int) big.Decimal {
	if index == 0 {
		return big.ZERO
	}
	cur, prev := dm.series.Candles[index], dm.series.Candles[index-1]
	up := cur.MaxPrice.Sub(prev.MaxPrice)
	down := prev.MinPrice.Sub(cur.MinPrice)

	move, other := down, up
	if dm.plus {
		move, other = up, down
	}
	if move.GT(other) && move.GT(big.ZERO) {
		return move
	}
	return big.ZERO
}

type trueRange struct {
	series *techan.TimeSeries
}

func (tr trueRange) Calculate(index int) big.Decimal {
	cur := tr.series.Candles[index]
	hl := cur.MaxPrice.Sub(cur.MinPrice)
	if index == 0 {
		return hl
	}
	prevClose := tr.series.Candles[index-1].ClosePrice
	result := hl
	for _, v := range []big.Decimal{cur.MaxPrice.Sub(prevClose).Abs(), cur.MinPrice.Sub(prevClose).Abs()} {
		if v.GT(result) {
			result = v
		}
	}
	return result
}

// wilder applies Wilder smoothing to the values of an indicator from index
// start on. The first output, at start+window-1, is the plain mean of the
// first window values; each later one is prev + (x - prev) / window.
type wilder struct {
	techan.Indicator
	window int
	start  int
	cache  map[int]big.Decimal
}

func newWilder(ind techan.Indicator, window, start int) *wilder {
	return &wilder{Indicator: ind, window: window, start: start, cache: make(map[int]big.Decimal)}
}

func (w *wilder) first() int {
	return w.start + w.window - 1
}

func (w *wilder) Calculate(index int) big.Decimal {
	if index < w.first() {
		return big.ZERO
	}
	if v, ok := w.cache[index]; ok {
		return v
	}

	n := big.NewDecimal(float64(w.window))
	var result big.Decimal
	if index == w.first() {
		sum := big.ZERO
		for i := w.start; i <= index; i++ {
			sum = sum.Add(w.Indicator.Calculate(i))
		}
		result = sum.Div(n)
	} else {
		prev := w.Calculate(index - 1)
		result = prev.Add(w.Indicator.Calculate(index).Sub(prev).Div(n))
	}
	w.cache[index] = result
	return result
}

// directionalIndex is 100 * smoothed DM / smoothed TR.
type directionalIndex struct {
	dm, tr techan.Indicator
}

func (di directionalIndex) Calculate(index int) big.Decimal {
	tr := di.tr.Calculate(index)
	if tr.Float() == 0 {
		return big.ZERO
	}
	return di.dm.Calculate(index).Div(tr).Mul(hundred)
}

// directionalMovementIndex is DX = 100 * |+DI - -DI| / (+DI + -DI).
type directionalMovementIndex struct {
	plus, minus techan.Indicator
}

func (dx directionalMovementIndex) Calculate(index int) big.Decimal {
	plus, minus := dx.plus.Calculate(index), dx.minus.Calculate(index)
	sum := plus.Add(minus)
	if sum.Float() == 0 {
		return big.ZERO
	}
	return plus.Sub(minus).Abs().Div(sum).Mul(hundred)
}

// dmi builds +DI, -DI and ADX over a window. The DI lines are defined from
// index window, ADX from index 2*window-1.
type dmi struct {
	plusDI, minusDI, adx techan.Indicator
	diStart, adxStart    int
}

func newDMI(series *techan.TimeSeries, window int) dmi {
	// bar 0 has no previous bar, so smoothing starts at 1
	tr := newWilder(trueRange{series}, window, 1)
	plusDI := directionalIndex{dm: newWilder(directionalMovement{series: series, plus: true}, window, 1), tr: tr}
	minusDI := directionalIndex{dm: newWilder(directionalMovement{series: series}, window, 1), tr: tr}
	dx := directionalMovementIndex{plus: plusDI, minus: minusDI}
	return dmi{
		plusDI:   plusDI,
		minusDI:  minusDI,
		adx:      newWilder(dx, window, window),
		diStart:  window,
		adxStart: 2*window - 1,
	}
}
