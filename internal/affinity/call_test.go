package affinity

import (
	"errors"
	"testing"
)

func TestCallCompletesOnce(t *testing.T) {
	c := NewCall(OpStatus)
	if !c.complete(Result{Value: 1}) {
		t.Fatal("first complete should signal")
	}
	if c.complete(Result{Value: 2}) {
		t.Error("second complete should not signal")
	}

	res := <-c.Done()
	if res.Value != 1 {
		t.Errorf("Expected value 1, got %v", res.Value)
	}
	select {
	case res := <-c.Done():
		t.Errorf("Expected a single result, got another: %v", res)
	default:
	}
}

func TestArg(t *testing.T) {
	c := NewCall(OpSend, []byte{0x01}, 42)

	data, err := Arg[[]byte](c, 0)
	if err != nil {
		t.Fatalf("Arg[[]byte] failed: %v", err)
	}
	if len(data) != 1 || data[0] != 0x01 {
		t.Errorf("Expected [0x01], got %v", data)
	}

	n, err := Arg[int](c, 1)
	if err != nil || n != 42 {
		t.Errorf("Expected 42, got %d (%v)", n, err)
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{"wrong type", func() error { _, err := Arg[string](c, 0); return err }},
		{"index past end", func() error { _, err := Arg[int](c, 2); return err }},
		{"negative index", func() error { _, err := Arg[int](c, -1); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, ErrBadArgument) {
				t.Errorf("Expected ErrBadArgument, got %v", err)
			}
		})
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpInitialize, "initialize"},
		{OpConnect, "connect"},
		{OpDisconnect, "disconnect"},
		{OpSend, "send"},
		{OpReceive, "receive"},
		{OpStatus, "status"},
		{OpRelease, "release"},
		{Op(99), "op(99)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, expected %q", int(tt.op), got, tt.want)
		}
	}
}
