package logger

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "console output",
			config: &Config{
				Level:  "info",
				Format: "console",
				Output: "console",
			},
			wantErr: false,
		},
		{
			name: "file output",
			config: &Config{
				Level:  "debug",
				Format: "json",
				Output: "file",
				File: FileConfig{
					Filename:   "/tmp/test.log",
					MaxSize:    10,
					MaxAge:     7,
					MaxBackups: 3,
					Compress:   true,
				},
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			config: &Config{
				Level:  "invalid",
				Format: "json",
				Output: "console",
			},
			wantErr: true,
		},
		{
			name: "invalid format",
			config: &Config{
				Level:  "info",
				Format: "invalid",
				Output: "console",
			},
			wantErr: true,
		},
		{
			name: "invalid output",
			config: &Config{
				Level:  "info",
				Format: "json",
				Output: "invalid",
			},
			wantErr: true,
		},
		{
			name: "file output without filename",
			config: &Config{
				Level:  "info",
				Format: "json",
				Output: "file",
				File: FileConfig{
					Filename: "",
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
			if logger != nil {
				logger.Sync()
			}
		})
	}

	// Cleanup test files
	os.Remove("/tmp/test.log")
}

func TestLogger_With(t *testing.T) {
	logger, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer logger.Sync()

	childLogger := logger.With(zap.String("key", "value"))
	if childLogger == nil {
		t.Error("With() returned nil logger")
	}
	childLogger.Info("test message with fields")
}

func TestLogger_Named(t *testing.T) {
	logger, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer logger.Sync()

	namedLogger := logger.Named("engine")
	if namedLogger == nil {
		t.Error("Named() returned nil logger")
	}
	namedLogger.Info("test message with name")
}

func TestContext(t *testing.T) {
	logger, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer logger.Sync()

	ctx := WithRequestID(context.Background(), "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}

	ctxLogger := logger.WithContext(ctx)
	if ctxLogger == nil {
		t.Error("WithContext() returned nil logger")
	}
	ctxLogger.Info("test message with context")
}

func TestGlobalLogger(t *testing.T) {
	if err := InitGlobal(DefaultConfig()); err != nil {
		t.Fatalf("InitGlobal() failed: %v", err)
	}

	if L() == nil {
		t.Fatal("L() returned nil after InitGlobal")
	}

	Info("global info message")
	Warn("global warn message")
	Sync()
}
