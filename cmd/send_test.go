package cmd

import (
	"testing"

	"github.com/ColonelBlimp/gocw/internal/sine"
)

func TestParseSlopeShape(t *testing.T) {
	tests := []struct {
		name    string
		want    sine.Shape
		wantErr bool
	}{
		{"linear", sine.Linear, false},
		{"raised_cosine", sine.RaisedCosine, false},
		{"sine", sine.Sine, false},
		{"rectangular", sine.Rectangular, false},
		{"bogus", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSlopeShape(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseSlopeShape(%q) expected error, got nil", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSlopeShape(%q) unexpected error: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("parseSlopeShape(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestSendCmd_Registered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"send"})
	if err != nil {
		t.Fatalf("Find(send) error: %v", err)
	}
	if cmd.Use != "send [text]" {
		t.Errorf("sendCmd.Use = %q, want %q", cmd.Use, "send [text]")
	}
}
