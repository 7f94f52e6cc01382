package protocol

import "testing"

func TestCalculateLRC(t *testing.T) {
	tests := []struct {
		name     string
		header   []byte
		data     []byte
		expected byte
	}{
		{
			name:     "enter debug",
			header:   []byte{0x55, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00},
			expected: 0xD5,
		},
		{
			name:     "read skips low length byte",
			header:   []byte{0x55, 0x00, 0x00, 0x10, 0x00, 0x00, 0x10},
			expected: 0x45,
		},
		{
			name:     "write with data",
			header:   []byte{0x55, 0x01, 0x00, 0x20, 0x00, 0x00, 0x04},
			data:     []byte{0xDE, 0xAD, 0xBE, 0xEF},
			expected: 0x56,
		},
		{
			name:     "high length byte is included",
			header:   []byte{0x55, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00},
			expected: 0x55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateLRC(tt.header, tt.data)
			if result != tt.expected {
				t.Errorf("CalculateLRC() = 0x%02X, want 0x%02X", result, tt.expected)
			}
		})
	}
}

func TestCalculateLRCMatchesDefinition(t *testing.T) {
	header := []byte{0x55, 0x13, 0x12, 0x34, 0x56, 0x9A, 0x00}
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i * 7)
	}

	var want byte
	for _, b := range header[:6] {
		want ^= b
	}
	for _, b := range data {
		want ^= b
	}

	for low := 0; low < 256; low++ {
		header[6] = byte(low)
		if got := CalculateLRC(header, data); got != want {
			t.Fatalf("CalculateLRC() with header[6]=0x%02X = 0x%02X, want 0x%02X", low, got, want)
		}
	}
}

func TestCalculateResponseLRC(t *testing.T) {
	got := CalculateResponseLRC([]byte{0xAA, 0x01, 0x02}, []byte{0x10, 0x20})
	if got != 0xAA^0x01^0x02^0x10^0x20 {
		t.Errorf("CalculateResponseLRC() = 0x%02X", got)
	}
}

func BenchmarkCalculateLRC(b *testing.B) {
	header := []byte{0x55, 0x01, 0x38, 0x00, 0x00, 0x10, 0x00}
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CalculateLRC(header, data)
	}
}
