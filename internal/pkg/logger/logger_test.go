package logger

import (
	"testing"

	"memoriza-service/internal/config"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggerConfig
		wantErr bool
	}{
		{name: "production info", cfg: config.LoggerConfig{Level: "info", Mode: "production"}},
		{name: "development debug", cfg: config.LoggerConfig{Level: "DEBUG", Mode: "development"}},
		{name: "bad level", cfg: config.LoggerConfig{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if l == nil {
				t.Fatal("nil logger")
			}
		})
	}
}

func TestNewRespectsLevel(t *testing.T) {
	l, err := New(config.LoggerConfig{Level: "warn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zap.InfoLevel) {
		t.Error("info enabled at warn level")
	}
	if !l.Core().Enabled(zap.ErrorLevel) {
		t.Error("error disabled at warn level")
	}
}
