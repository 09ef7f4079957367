package platform

import "testing"

func TestDPIFromRelative(t *testing.T) {
	tests := []struct {
		name                   string
		minRel, curRel, maxRel int32
		current, recommended   int
		wantErr                bool
	}{
		{"at recommended", -2, 0, 6, 150, 150, false},
		{"below recommended", -2, -2, 6, 100, 150, false},
		{"above recommended", -1, 2, 5, 175, 125, false},
		{"current clamped to max", 0, 9, 3, 175, 100, false},
		{"current clamped to min", -1, -4, 3, 100, 125, false},
		{"positive min", 1, 0, 3, 0, 0, true},
		{"range past last step", -3, 0, 9, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, rec, err := dpiFromRelative(tt.minRel, tt.curRel, tt.maxRel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if cur != tt.current || rec != tt.recommended {
				t.Fatalf("got %d%% (recommended %d%%), want %d%% (%d%%)", cur, rec, tt.current, tt.recommended)
			}
		})
	}
}

func TestDPIToRelative(t *testing.T) {
	tests := []struct {
		percent, recommended int
		want                 int32
		wantErr              bool
	}{
		{150, 150, 0, false},
		{100, 150, -2, false},
		{300, 125, 6, false},
		{110, 100, 0, true},
		{125, 130, 0, true},
	}

	for _, tt := range tests {
		got, err := dpiToRelative(tt.percent, tt.recommended)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("dpiToRelative(%d, %d) = %d, %v; want %d", tt.percent, tt.recommended, got, err, tt.want)
		}
	}
}

func TestDPIRelativeRoundTrip(t *testing.T) {
	// Recommended 125%, range 100%..300%.
	const minRel, maxRel = -1, 6
	for _, percent := range []int{100, 125, 200, 300} {
		rel, err := dpiToRelative(percent, 125)
		if err != nil {
			t.Fatalf("dpiToRelative(%d): %v", percent, err)
		}
		got, _, err := dpiFromRelative(minRel, rel, maxRel)
		if err != nil || got != percent {
			t.Errorf("round trip of %d%% = %d%%, %v", percent, got, err)
		}
	}
}

func TestSDRNitsToLevel(t *testing.T) {
	tests := []struct {
		nits    int
		want    uint32
		wantErr bool
	}{
		{80, 1000, false},
		{240, 3000, false},
		{241, 3050, false},
		{480, 6000, false},
		{79, 0, true},
		{481, 0, true},
	}

	for _, tt := range tests {
		got, err := sdrNitsToLevel(tt.nits)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("sdrNitsToLevel(%d) = %d, %v; want %d", tt.nits, got, err, tt.want)
		}
	}
	if got := sdrLevelToNits(3050); got != 244 {
		t.Errorf("sdrLevelToNits(3050) = %d, want 244", got)
	}
}

func TestAdvancedColor(t *testing.T) {
	tests := []struct {
		value              uint32
		supported, enabled bool
	}{
		{0x0, false, false},
		{0x1, true, false},
		{0x3, true, true},
		{0x9, true, false},
	}

	for _, tt := range tests {
		s, e := advancedColor(tt.value)
		if s != tt.supported || e != tt.enabled {
			t.Errorf("advancedColor(%#x) = %v, %v", tt.value, s, e)
		}
	}
}
