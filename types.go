package fixcol

import (
	"math"
	"strconv"
)

// Float is a float64 that renders with the maximum precision that fits its
// field width, instead of the default shortest-form rendering.
type Float float64

func (f Float) MarshalFixedColumn(width int) (data []byte, err error) {
	var l, p int

	if f > 0 {
		l = int(math.Log10(float64(f))) + 2
	} else if f < 0 {
		l = int(math.Log10(math.Abs(float64(f)))) + 3
	} else {
		l = 2
	}

	if l-1 > width {
		return nil, NewDataError(strconv.FormatFloat(float64(f), 'f', 0, 64),
			"formatted float with 0 precision longer than field width")
	}

	p = width - l
	if p < 0 {
		p = 0
	}

	s := strconv.FormatFloat(float64(f), 'f', p, 64)
	return []byte(s), nil
}

func (f *Float) UnmarshalFixedColumn(data []byte) error {
	if len(data) == 0 {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return newDataError(string(data), err)
	}
	*f = Float(v)
	return nil
}
