package ccdavalidator

import "testing"

func TestSeverityLevel_String(t *testing.T) {
	tests := []struct {
		level SeverityLevel
		want  string
	}{
		{SeverityInfo, "INFO"},
		{SeverityWarning, "WARNING"},
		{SeverityError, "ERROR"},
		{SeverityLevel(7), "SeverityLevel(7)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("SeverityLevel(%d).String() = %q; want %q", int(tt.level), got, tt.want)
		}
	}
}

func TestSeverityLevel_Includes(t *testing.T) {
	tests := []struct {
		floor SeverityLevel
		level SeverityLevel
		want  bool
	}{
		{SeverityInfo, SeverityInfo, true},
		{SeverityInfo, SeverityError, true},
		{SeverityWarning, SeverityInfo, false},
		{SeverityWarning, SeverityWarning, true},
		{SeverityError, SeverityWarning, false},
		{SeverityError, SeverityError, true},
	}

	for _, tt := range tests {
		if got := tt.floor.Includes(tt.level); got != tt.want {
			t.Errorf("%s.Includes(%s) = %v; want %v", tt.floor, tt.level, got, tt.want)
		}
	}
}

func TestParseSeverityLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    SeverityLevel
		wantErr bool
	}{
		{"", DefaultSeverityLevel, false},
		{"INFO", SeverityInfo, false},
		{"info", SeverityInfo, false},
		{"Warning", SeverityWarning, false},
		{"warn", SeverityWarning, false},
		{" ERROR ", SeverityError, false},
		{"fatal", SeverityInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseSeverityLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSeverityLevel(%q) error = %v; wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseSeverityLevel(%q) = %s; want %s", tt.input, got, tt.want)
		}
	}
}

func TestSeverityLevel_TextRoundTrip(t *testing.T) {
	text, err := SeverityWarning.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "WARNING" {
		t.Errorf("MarshalText() = %q; want %q", text, "WARNING")
	}

	var level SeverityLevel
	if err := level.UnmarshalText([]byte("error")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if level != SeverityError {
		t.Errorf("UnmarshalText(error) = %s; want ERROR", level)
	}
	if err := level.UnmarshalText([]byte("loud")); err == nil {
		t.Error("UnmarshalText(loud) should fail")
	}
}
