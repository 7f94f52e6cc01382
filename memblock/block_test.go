package memblock

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

type recordedWrite struct {
	addr uint32
	data []byte
}

type recordingWriter struct {
	writes []recordedWrite
	failAt int
	err    error
}

func (w *recordingWriter) WriteBlock(ctx context.Context, address uint32, data []byte) error {
	if w.err != nil && len(w.writes) == w.failAt {
		return w.err
	}
	w.writes = append(w.writes, recordedWrite{addr: address, data: append([]byte(nil), data...)})
	return nil
}

func TestBlockCoalesce(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Block
		want    Block
		wantErr bool
	}{
		{
			name: "b follows a",
			a:    Block{Address: 0x1000, Data: []byte{1, 2}},
			b:    Block{Address: 0x1002, Data: []byte{3}},
			want: Block{Address: 0x1000, Data: []byte{1, 2, 3}},
		},
		{
			name: "a follows b",
			a:    Block{Address: 0x1002, Data: []byte{3}},
			b:    Block{Address: 0x1000, Data: []byte{1, 2}},
			want: Block{Address: 0x1000, Data: []byte{1, 2, 3}},
		},
		{
			name:    "gap",
			a:       Block{Address: 0x1000, Data: []byte{1}},
			b:       Block{Address: 0x1002, Data: []byte{3}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.CanCoalesce(tt.b); got == tt.wantErr {
				t.Errorf("CanCoalesce() = %v", got)
			}
			got, err := tt.a.Coalesce(tt.b)
			if tt.wantErr {
				var adjErr *NotAdjacentError
				if !errors.As(err, &adjErr) {
					t.Fatalf("error = %v, want *NotAdjacentError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Address != tt.want.Address || !bytes.Equal(got.Data, tt.want.Data) {
				t.Errorf("Coalesce() = %06X %v, want %06X %v", got.Address, got.Data, tt.want.Address, tt.want.Data)
			}
		})
	}
}

func TestBlockPad32(t *testing.T) {
	tests := []struct {
		name string
		in   Block
		want Block
	}{
		{
			name: "unaligned start ending on a boundary",
			in:   Block{Address: 1, Data: []byte{0xA, 0xB, 0xC}},
			want: Block{Address: 0, Data: []byte{0, 0xA, 0xB, 0xC, 0, 0, 0, 0}},
		},
		{
			name: "crosses a boundary",
			in:   Block{Address: 3, Data: []byte{1, 2, 3}},
			want: Block{Address: 0, Data: []byte{0, 0, 0, 1, 2, 3, 0, 0}},
		},
		{
			name: "aligned",
			in:   Block{Address: 0x2000, Data: []byte{1, 2, 3, 4}},
			want: Block{Address: 0x2000, Data: []byte{1, 2, 3, 4}},
		},
		{
			name: "short tail",
			in:   Block{Address: 0x2000, Data: []byte{1}},
			want: Block{Address: 0x2000, Data: []byte{1, 0, 0, 0}},
		},
		{
			name: "aligned start long tail",
			in:   Block{Address: 0x2000, Data: []byte{1, 2, 3, 4, 5}},
			want: Block{Address: 0x2000, Data: []byte{1, 2, 3, 4, 5, 0, 0, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Pad32()
			if got.Address != tt.want.Address || !bytes.Equal(got.Data, tt.want.Data) {
				t.Errorf("Pad32() = %06X %v, want %06X %v", got.Address, got.Data, tt.want.Address, tt.want.Data)
			}
			if got.Address%4 != 0 || got.End()%4 != 0 {
				t.Errorf("Pad32() not aligned: %v", got)
			}
		})
	}
}

func TestBlockOutput(t *testing.T) {
	data := make([]byte, 2500)
	for i := range data {
		data[i] = byte(i)
	}
	b := Block{Address: 0x10000, Data: data}

	w := &recordingWriter{}
	if err := b.Output(context.Background(), 1024, w); err != nil {
		t.Fatalf("Output: %v", err)
	}

	wantAddrs := []uint32{0x10000, 0x10400, 0x10800}
	wantSizes := []int{1024, 1024, 452}
	if len(w.writes) != len(wantAddrs) {
		t.Fatalf("got %d writes, want %d", len(w.writes), len(wantAddrs))
	}
	var joined []byte
	for i, wr := range w.writes {
		if wr.addr != wantAddrs[i] || len(wr.data) != wantSizes[i] {
			t.Errorf("write %d = %06X/%d, want %06X/%d", i, wr.addr, len(wr.data), wantAddrs[i], wantSizes[i])
		}
		joined = append(joined, wr.data...)
	}
	if !bytes.Equal(joined, data) {
		t.Error("chunks do not reassemble to the block")
	}
}

func TestBlockOutputStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	w := &recordingWriter{failAt: 1, err: boom}
	b := Block{Address: 0, Data: make([]byte, 30)}

	err := b.Output(context.Background(), 10, w)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if len(w.writes) != 1 {
		t.Errorf("writes = %d, want 1", len(w.writes))
	}
}

func TestBlockOutputBadChunk(t *testing.T) {
	b := Block{Address: 0, Data: []byte{1}}
	if err := b.Output(context.Background(), 0, &recordingWriter{}); err == nil {
		t.Error("expected error for zero chunk size")
	}
}

func TestNewBlockCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	b := NewBlock(0x100, src)
	src[0] = 9
	if b.Data[0] != 1 {
		t.Error("NewBlock shares the caller's slice")
	}
}
