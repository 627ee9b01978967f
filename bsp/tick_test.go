package bsp

import "testing"

func TestDiff16(t *testing.T) {
	testCases := []struct {
		a, b     uint16
		expected int32
	}{
		{100, 50, 50},
		{50, 100, -50},
		{0x0010, 0xFFF0, 32},
		{0xFFF0, 0x0010, -32},
		{0x7FFF, 0, 0x7FFF},
		{0x8000, 0, -0x8000},
		{0, 0, 0},
	}

	for _, tc := range testCases {
		if got := Diff(tc.a, tc.b); got != tc.expected {
			t.Errorf("Diff(0x%04X, 0x%04X) = %d, expected %d", tc.a, tc.b, got, tc.expected)
		}
	}
}

func TestDiff32(t *testing.T) {
	testCases := []struct {
		a, b     uint32
		expected int32
	}{
		{1000, 500, 500},
		{500, 1000, -500},
		{0x00000010, 0xFFFFFFF0, 32},
		{0xFFFFFFF0, 0x00000010, -32},
		{0x80000000, 0, -0x80000000},
	}

	for _, tc := range testCases {
		if got := Diff(tc.a, tc.b); got != tc.expected {
			t.Errorf("Diff(0x%08X, 0x%08X) = %d, expected %d", tc.a, tc.b, got, tc.expected)
		}
	}
}

func TestReachedAcrossWrap(t *testing.T) {
	start := uint16(0xFFF0)
	deadline := start + 32 // wraps to 0x0010

	if deadline != 0x0010 {
		t.Fatalf("expected deadline 0x0010, got 0x%04X", deadline)
	}
	if Reached(uint16(0xFFFF), deadline) {
		t.Error("deadline reported reached before the wrap")
	}
	if Reached(uint16(0x000F), deadline) {
		t.Error("deadline reported reached one tick early")
	}
	if !Reached(uint16(0x0010), deadline) {
		t.Error("deadline not reached at its own tick")
	}
	if !Reached(uint16(0x0020), deadline) {
		t.Error("deadline not reached after it passed")
	}
}

func TestUntil(t *testing.T) {
	if got := Until(uint32(100), uint32(600)); got != 500 {
		t.Errorf("Until = %d, expected 500", got)
	}
	if got := Until(uint32(700), uint32(600)); got != 0 {
		t.Errorf("Until past deadline = %d, expected 0", got)
	}
	if got := Until(uint16(0xFFF8), uint16(0x0008)); got != 16 {
		t.Errorf("Until across wrap = %d, expected 16", got)
	}
}

func TestMaxPeriod(t *testing.T) {
	if got := MaxPeriod[uint16](); got != 0x7FFF {
		t.Errorf("MaxPeriod[uint16] = 0x%X", got)
	}
	if got := MaxPeriod[uint32](); got != 0x7FFFFFFF {
		t.Errorf("MaxPeriod[uint32] = 0x%X", got)
	}
}
