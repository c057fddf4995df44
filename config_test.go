package rs232

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/allbin/go-rs232/transport"
	"github.com/allbin/go-rs232/transport/bugst"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.BaudRate != 9600 {
		t.Errorf("Expected baud 9600, got %d", config.BaudRate)
	}
	if !config.Affinity {
		t.Error("Expected affinity to be enabled by default")
	}
	if config.Driver != bugst.Name {
		t.Errorf("Expected driver %s, got %s", bugst.Name, config.Driver)
	}
	if config.QueueSize <= 0 {
		t.Errorf("Expected a positive queue size, got %d", config.QueueSize)
	}
}

func TestWithBaudRate(t *testing.T) {
	tests := []struct {
		name    string
		rate    int
		wantErr bool
	}{
		{"9600", 9600, false},
		{"115200", 115200, false},
		{"non-standard", 12345, false},
		{"zero", 0, true},
		{"negative", -9600, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithBaudRate(tt.rate)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithBaudRate(%d) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBaudRate) {
				t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
			}
			if err == nil && config.BaudRate != tt.rate {
				t.Errorf("BaudRate = %d, want %d", config.BaudRate, tt.rate)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	null := transport.NewNull()
	logger := zap.NewNop()

	tests := []struct {
		name    string
		opt     Option
		wantErr bool
		check   func(c Config) bool
	}{
		{"direct", WithDirect(), false, func(c Config) bool { return !c.Affinity }},
		{"affinity off", WithAffinity(false), false, func(c Config) bool { return !c.Affinity }},
		{"affinity on", WithAffinity(true), false, func(c Config) bool { return c.Affinity }},
		{"driver", WithDriver("termios"), false, func(c Config) bool { return c.Driver == "termios" }},
		{"empty driver", WithDriver(""), true, nil},
		{"transport", WithTransport(null), false, func(c Config) bool { return c.Transport == null }},
		{"nil transport", WithTransport(nil), true, nil},
		{"queue size", WithQueueSize(8), false, func(c Config) bool { return c.QueueSize == 8 }},
		{"zero queue size", WithQueueSize(0), true, nil},
		{"logger", WithLogger(logger), false, func(c Config) bool { return c.Logger == logger }},
		{"nil logger", WithLogger(nil), true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := tt.opt(&config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if !tt.check(config) {
				t.Errorf("option not applied: %+v", config)
			}
		})
	}
}
