package profile

import "testing"

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   int64
		wantOK bool
	}{
		{"int", 42, 42, true},
		{"int64", int64(7), 7, true},
		{"float truncates", 3.9, 3, true},
		{"negative float truncates toward zero", -3.9, -3, true},
		{"digit string", "123", 123, true},
		{"padded digit string", "  55 ", 55, true},
		{"signed string", "-12", -12, true},
		{"nil", nil, 0, false},
		{"free text", "not-a-number", 0, false},
		{"decimal string", "3.5", 0, false},
		{"bool", true, 0, false},
		{"slice", []string{"1"}, 0, false},
		{"map", map[string]any{"n": 1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceInt(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("CoerceInt(%v) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatDurationMs(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"sixty five seconds", 65000, "0:01:05", true},
		{"zero", 0, "0:00:00", true},
		{"string millis", "65000", "0:01:05", true},
		{"hours", 3_723_000, "1:02:03", true},
		{"one day", 93_784_000, "1 day, 2:03:04", true},
		{"two days", 180_184_000, "2 days, 2:03:04", true},
		{"fractional second", 65500, "0:01:05.500000", true},
		{"not a number", "not-a-number", "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatDurationMs(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("FormatDurationMs(%v) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClassifyValidity(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		wantKind  ValidityKind
		wantLabel string
	}{
		{"bool true", true, ValidityValid, ""},
		{"bool false", false, ValidityInvalid, ""},
		{"valid label", "valid", ValidityValid, ""},
		{"vendor deliverable", "Deliverable", ValidityValid, ""},
		{"numeric one", 1, ValidityValid, ""},
		{"bounced", "Bounced", ValidityInvalid, ""},
		{"numeric zero", 0, ValidityInvalid, ""},
		{"unknown vocabulary", "n/a", ValidityUnknown, ""},
		{"unchecked", "UNCHECKED", ValidityUnknown, ""},
		{"unrecognized passes through", "weird-status", ValidityOther, "weird-status"},
		{"unrecognized is lowercased", "  Grey-Listed ", ValidityOther, "grey-listed"},
		{"nil", nil, ValidityNotSynced, ""},
		{"blank string", "   ", ValidityNotSynced, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyValidity(tt.input)
			if got.Kind != tt.wantKind || got.Label != tt.wantLabel {
				t.Errorf("ClassifyValidity(%v) = {%v %q}, want {%v %q}",
					tt.input, got.Kind, got.Label, tt.wantKind, tt.wantLabel)
			}
		})
	}
}

func TestValidityDisplay(t *testing.T) {
	tests := []struct {
		v    Validity
		want string
	}{
		{Validity{Kind: ValidityValid}, "valid"},
		{Validity{Kind: ValidityInvalid}, "invalid"},
		{Validity{Kind: ValidityUnknown}, "unknown"},
		{Validity{Kind: ValidityOther, Label: "weird-status"}, "weird-status"},
		{Validity{Kind: ValidityNotSynced}, NotSynced},
	}

	for _, tt := range tests {
		if got := tt.v.Display(); got != tt.want {
			t.Errorf("Display(%v) = %q, want %q", tt.v.Kind, got, tt.want)
		}
	}
}
