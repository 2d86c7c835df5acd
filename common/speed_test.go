package common

import "testing"

func TestSpeedConversion(t *testing.T) {
	if got := KmhToMs(3.6); got != 1 {
		t.Errorf("have %v want 1", got)
	}
	if got := MsToKmh(2); got != 7.2 {
		t.Errorf("have %v want 7.2", got)
	}
}

func TestDecimalToFixed(t *testing.T) {
	cases := []struct {
		num       float64
		precision int
		want      float64
	}{
		{1.2341, 2, 1.23},
		{1.2377, 2, 1.24},
		{1234.56, 1, 1234.6},
		{-1.2377, 2, -1.24},
		{0, 3, 0},
	}
	for _, c := range cases {
		if got := DecimalToFixed(c.num, c.precision); got != c.want {
			t.Errorf("DecimalToFixed(%v, %d): have %v want %v", c.num, c.precision, got, c.want)
		}
	}
}
