package domain

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("invalid interval")

// Interval is the bar period requested from a market-data provider.
type Interval time.Duration

const (
	Daily   = Interval(time.Hour * 24)
	Weekly  = Interval(time.Hour * 24 * 7)
	Monthly = Interval(time.Hour * 24 * 30)
)

func (i Interval) String() string {
	return intervalToString[i]
}

func (i Interval) Duration() time.Duration {
	return time.Duration(i)
}

func ParseInterval(s string) (Interval, error) {
	i, ok := stringToInterval[s]
	if !ok {
		return 0, ErrInvalidInterval
	}
	return i, nil
}

var intervalToString = map[Interval]string{
	Daily:   "1d",
	Weekly:  "1wk",
	Monthly: "1mo",
}

var stringToInterval = map[string]Interval{
	"1d":  Daily,
	"d1":  Daily,
	"1wk": Weekly,
	"w1":  Weekly,
	"1mo": Monthly,
	"M1":  Monthly,
}
