package loader

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

type call struct {
	addr uint32
	data []byte
}

type recorder struct {
	calls []call
	err   error
}

func (r *recorder) WriteBlock(ctx context.Context, address uint32, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, call{addr: address, data: append([]byte(nil), data...)})
	return nil
}

func assertCalls(t *testing.T, got, want []call) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d writes, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].addr != want[i].addr || !bytes.Equal(got[i].data, want[i].data) {
			t.Errorf("write %d = %06X % X, want %06X % X", i, got[i].addr, got[i].data, want[i].addr, want[i].data)
		}
	}
}

func TestParseCPU(t *testing.T) {
	tests := []struct {
		input   string
		want    CPU
		wantErr bool
	}{
		{input: "65c02", want: CPU65C02},
		{input: "65C02", want: CPU65C02},
		{input: "65816", want: CPU65816},
		{input: "m68k", want: CPU680x0},
		{input: "68000", want: CPU680x0},
		{input: "68040", want: CPU68040},
		{input: "68060", want: CPU68040},
		{input: "z80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCPU(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCPU(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadPGZSingleBlock(t *testing.T) {
	image := []byte{
		'Z',
		0x00, 0x20, 0x00, // address 0x2000
		0x04, 0x00, 0x00, // size 4
		0xDE, 0xAD, 0xBE, 0xEF,
		0x00, 0x00, 0x00, // end
		0x00, 0x00, 0x00,
	}

	r := &recorder{}
	if err := LoadPGZ(context.Background(), image, CPU65C02, r); err != nil {
		t.Fatalf("LoadPGZ: %v", err)
	}
	assertCalls(t, r.calls, []call{{addr: 0x2000, data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}})
}

func TestLoadPGZSplitsLargeBlocks(t *testing.T) {
	data := make([]byte, 2500)
	for i := range data {
		data[i] = byte(i * 7)
	}
	image := []byte{'z', 0x00, 0x00, 0x01, 0x00, 0xC4, 0x09, 0x00, 0x00}
	image = append(image, data...)

	r := &recorder{}
	if err := LoadPGZ(context.Background(), image, CPU65816, r); err != nil {
		t.Fatalf("LoadPGZ: %v", err)
	}
	assertCalls(t, r.calls, []call{
		{addr: 0x010000, data: data[:1024]},
		{addr: 0x010400, data: data[1024:2048]},
		{addr: 0x010800, data: data[2048:]},
	})
}

func TestLoadPGZStartAddress(t *testing.T) {
	tests := []struct {
		name  string
		cpu   CPU
		start []byte
		want  []call
	}{
		{
			name:  "65816 bank 0",
			cpu:   CPU65816,
			start: []byte{0x00, 0x10, 0x00},
			want:  []call{{addr: 0xFFFC, data: []byte{0x00, 0x10}}},
		},
		{
			name:  "65816 high bank uses stub",
			cpu:   CPU65816,
			start: []byte{0x34, 0x12, 0x03},
			want: []call{
				{addr: 0xFF80, data: []byte{0x18, 0xFB, 0x5C, 0x34, 0x12, 0x03}},
				{addr: 0xFFFC, data: []byte{0x80, 0xFF}},
			},
		},
		{
			name:  "65c02",
			cpu:   CPU65C02,
			start: []byte{0x00, 0x20, 0x00},
			want: []call{
				{addr: 0xFFFC, data: []byte{0x00, 0x20}},
				{addr: 0x0080, data: []byte("CROSSDEV")},
				{addr: 0x0088, data: []byte{0x00, 0x20}},
				{addr: 0x00FA, data: []byte{0x00, 0x00}},
			},
		},
		{
			name:  "680x0",
			cpu:   CPU680x0,
			start: []byte{0x00, 0x00, 0x02},
			want:  []call{{addr: 0x0004, data: []byte{0x00, 0x02, 0x00, 0x00}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image := append([]byte{'Z'}, tt.start...)
			image = append(image, 0x00, 0x00, 0x00)

			r := &recorder{}
			if err := LoadPGZ(context.Background(), image, tt.cpu, r); err != nil {
				t.Fatalf("LoadPGZ: %v", err)
			}
			assertCalls(t, r.calls, tt.want)
		})
	}
}

func TestLoadPGZMalformed(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
	}{
		{name: "empty", image: nil},
		{name: "bad magic", image: []byte{'P', 0, 0, 0}},
		{name: "truncated address", image: []byte{'Z', 0x00, 0x20}},
		{name: "truncated size", image: []byte{'Z', 0x00, 0x20, 0x00, 0x04}},
		{name: "truncated data", image: []byte{'Z', 0x00, 0x20, 0x00, 0x04, 0x00, 0x00, 0xDE}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadPGZ(context.Background(), tt.image, CPU65C02, &recorder{})
			var imgErr *MalformedImageError
			if !errors.As(err, &imgErr) {
				t.Fatalf("error = %v, want *MalformedImageError", err)
			}
			if imgErr.Format != "pgz" {
				t.Errorf("Format = %q", imgErr.Format)
			}
		})
	}
}

func TestLoadPGZWriterError(t *testing.T) {
	boom := errors.New("link down")
	image := []byte{'Z', 0x00, 0x20, 0x00, 0x01, 0x00, 0x00, 0xEA}

	err := LoadPGZ(context.Background(), image, CPU65C02, &recorder{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
}

func TestLoadPGX(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		cpu   CPU
		want  []call
	}{
		{
			name:  "65c02 little endian",
			image: []byte{'P', 'G', 'X', 0x03, 0x00, 0x30, 0x00, 0x00, 0xA9, 0x01},
			cpu:   CPU65C02,
			want: []call{
				{addr: 0x3000, data: []byte{0xA9, 0x01}},
				{addr: 0xFFFC, data: []byte{0x00, 0x30}},
				{addr: 0x0080, data: []byte("CROSSDEV")},
				{addr: 0x0088, data: []byte{0x00, 0x30}},
				{addr: 0x00FA, data: []byte{0x00, 0x00}},
			},
		},
		{
			name:  "680x0 big endian",
			image: []byte{'P', 'G', 'X', 0x02, 0x00, 0x01, 0x00, 0x00, 0x4E, 0x71},
			cpu:   CPU680x0,
			want: []call{
				{addr: 0x010000, data: []byte{0x4E, 0x71}},
				{addr: 0x0004, data: []byte{0x00, 0x01, 0x00, 0x00}},
			},
		},
		{
			name:  "680x0 image on a 68040",
			image: []byte{'P', 'G', 'X', 0x02, 0x00, 0x01, 0x00, 0x00, 0x4E, 0x71},
			cpu:   CPU68040,
			want: []call{
				{addr: 0x010000, data: []byte{0x4E, 0x71}},
				{addr: 0x0004, data: []byte{0x00, 0x01, 0x00, 0x00}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			if err := LoadPGX(context.Background(), tt.image, tt.cpu, r); err != nil {
				t.Fatalf("LoadPGX: %v", err)
			}
			assertCalls(t, r.calls, tt.want)
		})
	}
}

func TestLoadPGXMalformed(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		cpu   CPU
	}{
		{name: "short", image: []byte{'P', 'G', 'X'}, cpu: CPU65C02},
		{name: "signature", image: []byte{'P', 'G', 'Z', 0x03, 0, 0, 0, 0}, cpu: CPU65C02},
		{name: "unknown cpu", image: []byte{'P', 'G', 'X', 0x07, 0, 0, 0, 0}, cpu: CPU65C02},
		{name: "cpu mismatch", image: []byte{'P', 'G', 'X', 0x01, 0, 0, 0, 0}, cpu: CPU65C02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadPGX(context.Background(), tt.image, tt.cpu, &recorder{})
			var imgErr *MalformedImageError
			if !errors.As(err, &imgErr) {
				t.Fatalf("error = %v, want *MalformedImageError", err)
			}
		})
	}
}

func TestLoadIntelHex(t *testing.T) {
	const hex = ":04200000DEADBEEFA4\n" +
		":020000040001F9\n" +
		":03001000010203E7\n" +
		":00000001FF\n"

	r := &recorder{}
	if err := LoadIntelHex(context.Background(), bytes.NewBufferString(hex), r); err != nil {
		t.Fatalf("LoadIntelHex: %v", err)
	}

	got := map[uint32][]byte{}
	for _, c := range r.calls {
		got[c.addr] = c.data
	}
	if len(got) != 2 {
		t.Fatalf("got %d writes, want 2: %v", len(got), r.calls)
	}
	if !bytes.Equal(got[0x2000], []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("0x2000 = % X", got[0x2000])
	}
	if !bytes.Equal(got[0x010010], []byte{1, 2, 3}) {
		t.Errorf("0x010010 = % X", got[0x010010])
	}
}

func TestLoadIntelHexMalformed(t *testing.T) {
	err := LoadIntelHex(context.Background(), bytes.NewBufferString(":04200000DEADBEEF00\n"), &recorder{})
	var imgErr *MalformedImageError
	if !errors.As(err, &imgErr) {
		t.Fatalf("error = %v, want *MalformedImageError", err)
	}
}

func TestStageFlush(t *testing.T) {
	ctx := context.Background()
	var st Stage

	image := []byte{
		'Z',
		0x04, 0x20, 0x00, 0x02, 0x00, 0x00, 0x03, 0x04,
		0x00, 0x20, 0x00, 0x04, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03,
		0x00, 0x00, 0x00,
	}
	if err := LoadPGZ(ctx, image, CPU65C02, &st); err != nil {
		t.Fatalf("LoadPGZ: %v", err)
	}
	if st.Size() != 6 {
		t.Fatalf("Size() = %d, want 6", st.Size())
	}

	r := &recorder{}
	if err := st.Flush(ctx, 4, r); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	assertCalls(t, r.calls, []call{
		{addr: 0x2000, data: []byte{0, 1, 2, 3}},
		{addr: 0x2004, data: []byte{3, 4}},
	})
}

func TestStageAlign32(t *testing.T) {
	ctx := context.Background()
	var st Stage

	// One 3 byte block at 0x2001 ending on 0x2004, then the start vector.
	image := []byte{
		'z',
		0x01, 0x20, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC,
		0x00, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	if err := LoadPGZ(ctx, image, CPU68040, &st); err != nil {
		t.Fatalf("LoadPGZ: %v", err)
	}
	st.Align32()

	r := &recorder{}
	if err := st.Flush(ctx, 16, r); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	assertCalls(t, r.calls, []call{
		{addr: 0x0004, data: []byte{0x00, 0x00, 0x20, 0x00}},
		{addr: 0x2000, data: []byte{0, 0xAA, 0xBB, 0xCC, 0, 0, 0, 0}},
	})
}
