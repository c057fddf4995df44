package cmd

import (
	"reflect"
	"testing"
)

func TestFilterPorts(t *testing.T) {
	ports := []string{"/dev/ttyUSB0", "/dev/ttyACM1", "/dev/ttyS0", "/dev/ttyAMA0", "COM3"}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", ports},
		{"all", ports},
		{"usb", []string{"/dev/ttyUSB0", "/dev/ttyACM1"}},
		{"standard", []string{"/dev/ttyS0", "COM3"}},
		{"arm", []string{"/dev/ttyAMA0"}},
		{"bogus", nil},
	}
	for _, tt := range tests {
		if got := filterPorts(ports, tt.filter); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("filterPorts(%q) = %v, expected %v", tt.filter, got, tt.want)
		}
	}
}

func TestGetPortType(t *testing.T) {
	tests := []struct {
		port     string
		expected string
	}{
		{"/dev/ttyUSB0", "USB Serial"},
		{"/dev/ttyACM0", "USB CDC/ACM"},
		{"/dev/ttyS0", "Standard Serial"},
		{"/dev/ttyAMA0", "ARM Serial"},
		{"/dev/ttymxc0", "i.MX Serial"},
		{"/dev/ttyO0", "OMAP Serial"},
		{"/dev/ttySAC0", "Samsung Serial"},
		{"/dev/ttyTHS0", "Tegra Serial"},
		{"COM1", "COM Port"},
		{"MOCK", "In-memory"},
		{"unknown", "Serial Port"},
	}

	for _, test := range tests {
		if result := getPortType(test.port); result != test.expected {
			t.Errorf("getPortType(%s) = %s, expected %s", test.port, result, test.expected)
		}
	}
}
