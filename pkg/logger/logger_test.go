package logger

import (
	"errors"
	"testing"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"debug", "console", false},
		{"info", "json", false},
		{"warn", "", false},
		{"error", "json", false},
		{"verbose", "json", true},
		{"info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			log, err := New(Config{Level: tt.level, Format: tt.format})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && log == nil {
				t.Fatal("New() returned nil logger without error")
			}
		})
	}
}

func TestNop_DoesNotPanic(t *testing.T) {
	log := NewNop().Named("test").With(String("k", "v"))
	log.Debug("debug", Int("n", 1))
	log.Info("info", Bool("b", true))
	log.Warn("warn", Float64("f", 1.5))
	log.Error("error", Error(errors.New("boom")))
}
