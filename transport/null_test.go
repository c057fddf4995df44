package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestNullRoundTrip(t *testing.T) {
	n := NewNull()

	h, err := n.Open(NullPortName, 9600)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := h.Write([]byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := h.Flush(); err != nil {
		t.Errorf("Flush failed: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if got := n.Written(); !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("Expected 01 02 03, got % X", got)
	}
	if n.Opens() != 1 || n.Flushes() != 1 {
		t.Errorf("Expected 1 open and 1 flush, got %d and %d", n.Opens(), n.Flushes())
	}
}

func TestNullOutputSurvivesReconnect(t *testing.T) {
	n := NewNull()
	for _, b := range []byte{0xAA, 0xBB} {
		h, _ := n.Open(NullPortName, 9600)
		h.Write([]byte{b})
		h.Close()
	}
	if got := n.Written(); !bytes.Equal(got, []byte{0xAA, 0xBB}) {
		t.Errorf("Expected AA BB, got % X", got)
	}
}

func TestNullRead(t *testing.T) {
	n := NewNull()
	h, _ := n.Open(NullPortName, 9600)
	defer h.Close()

	buf := make([]byte, 8)
	if _, err := h.Read(buf); err != io.EOF {
		t.Errorf("Expected io.EOF on empty input, got %v", err)
	}

	n.Feed([]byte("hello"))
	got, err := h.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf[:got]) != "hello" {
		t.Errorf("Expected hello, got %q", buf[:got])
	}
}

func TestNullClosedHandle(t *testing.T) {
	n := NewNull()
	h, _ := n.Open(NullPortName, 9600)
	h.Close()

	checks := map[string]error{}
	_, checks["Read"] = h.Read(make([]byte, 1))
	_, checks["Write"] = h.Write([]byte{0x00})
	checks["Flush"] = h.Flush()
	checks["Close"] = h.Close()
	for name, err := range checks {
		if !errors.Is(err, ErrPortClosed) {
			t.Errorf("%s after Close: expected ErrPortClosed, got %v", name, err)
		}
	}
	if len(n.Written()) != 0 {
		t.Errorf("Expected nothing written, got % X", n.Written())
	}
}

func TestNullWrittenIsACopy(t *testing.T) {
	n := NewNull()
	h, _ := n.Open(NullPortName, 9600)
	h.Write([]byte{0x01})

	got := n.Written()
	got[0] = 0xFF
	if n.Written()[0] != 0x01 {
		t.Error("Written exposed the internal buffer")
	}
}
