package models

import "testing"

// TestFrameLengthPerGroupSet verifies the frame is 3 values per enabled group.
func TestFrameLengthPerGroupSet(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		set := GroupSet{Accel: mask&1 != 0, Gyro: mask&2 != 0, Mag: mask&4 != 0}
		want := 0
		for _, on := range []bool{set.Accel, set.Gyro, set.Mag} {
			if on {
				want += 3
			}
		}
		if got := set.FrameLength(); got != want {
			t.Errorf("%+v: FrameLength = %d, want %d", set, got, want)
		}
		if set.Any() != (want > 0) {
			t.Errorf("%+v: Any = %v", set, set.Any())
		}
	}
}

// TestEnabledOrder verifies groups come out in accel, gyro, mag order.
func TestEnabledOrder(t *testing.T) {
	got := GroupSet{Accel: true, Mag: true}.Enabled()
	if len(got) != 2 || got[0] != GroupAccel || got[1] != GroupMag {
		t.Fatalf("Enabled = %v, want [accel mag]", got)
	}
}

func TestODRIntervals(t *testing.T) {
	cases := []struct {
		in  string
		hz  int
		ms  uint64
		odr ODR
	}{
		{"off", 0, 0, ODROff},
		{"10hz", 10, 100, ODR10Hz},
		{"50hz", 50, 20, ODR50Hz},
		{"119hz", 119, 8, ODR119Hz},
		{"238hz", 238, 4, ODR238Hz},
		{"476hz", 476, 2, ODR476Hz},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			odr, err := ParseODR(c.in)
			if err != nil {
				t.Fatalf("ParseODR: %v", err)
			}
			if odr != c.odr || odr.Hz() != c.hz || odr.IntervalMs() != c.ms {
				t.Errorf("got %v hz=%d ms=%d, want %v hz=%d ms=%d",
					odr, odr.Hz(), odr.IntervalMs(), c.odr, c.hz, c.ms)
			}
			if odr.String() != c.in {
				t.Errorf("String = %q", odr.String())
			}
		})
	}
	if _, err := ParseODR("100hz"); err == nil {
		t.Error("ParseODR(100hz) should fail")
	}
}

// TestSampleBufferCursor verifies fixed capacity and cursor reset.
func TestSampleBufferCursor(t *testing.T) {
	var b SampleBuffer
	for i := 0; i < 3; i++ {
		if !b.PutAxes(int16(i), int16(i+1), int16(i+2)) {
			t.Fatalf("PutAxes %d refused", i)
		}
	}
	if b.PutAxes(9, 9, 9) {
		t.Error("PutAxes past capacity should fail")
	}
	if b.Len() != MaxFrameValues {
		t.Errorf("Len = %d, want %d", b.Len(), MaxFrameValues)
	}

	b.Reset()
	if b.Len() != 0 || len(b.Values()) != 0 {
		t.Errorf("after Reset Len = %d", b.Len())
	}
	b.PutAxes(-1, -2, -3)
	if v := b.Values(); len(v) != 3 || v[0] != -1 || v[2] != -3 {
		t.Errorf("Values = %v", v)
	}

	b.Zero()
	b.Put(42)
	if v := b.Values(); len(v) != 1 || v[0] != 42 {
		t.Errorf("single sample frame = %v", v)
	}
}
