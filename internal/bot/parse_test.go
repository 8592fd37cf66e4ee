package bot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAutoInterval(t *testing.T) {
	tests := []struct {
		name       string
		args       string
		want       int
		wantNotice bool
	}{
		{name: "empty uses default", args: "", want: 300},
		{name: "whitespace only uses default", args: "   ", want: 300},
		{name: "valid interval", args: "600", want: 600},
		{name: "exact minimum", args: "60", want: 60},
		{name: "below minimum clamped", args: "30", want: 60, wantNotice: true},
		{name: "zero clamped", args: "0", want: 60, wantNotice: true},
		{name: "negative clamped", args: "-5", want: 60, wantNotice: true},
		{name: "non-numeric falls back", args: "soon", want: 300, wantNotice: true},
		{name: "trailing words ignored", args: "120 seconds", want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notice := ParseAutoInterval(tt.args)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("interval mismatch (-want +got):\n%s", diff)
			}
			if tt.wantNotice && notice == "" {
				t.Error("expected a correction notice")
			}
			if !tt.wantNotice && notice != "" {
				t.Errorf("unexpected notice: %q", notice)
			}
		})
	}
}
