package memblock

import (
	"bytes"
	"context"
	"testing"
)

func TestListCoalesce(t *testing.T) {
	tests := []struct {
		name string
		in   []Block
		want []Block
	}{
		{
			name: "empty",
		},
		{
			name: "out of order adjacent",
			in: []Block{
				{Address: 0x104, Data: []byte{5, 6}},
				{Address: 0x100, Data: []byte{1, 2, 3, 4}},
			},
			want: []Block{
				{Address: 0x100, Data: []byte{1, 2, 3, 4, 5, 6}},
			},
		},
		{
			name: "runs separated by a gap",
			in: []Block{
				{Address: 0x200, Data: []byte{0xB}},
				{Address: 0x100, Data: []byte{0xA}},
				{Address: 0x101, Data: []byte{0xA}},
				{Address: 0x201, Data: []byte{0xB}},
			},
			want: []Block{
				{Address: 0x100, Data: []byte{0xA, 0xA}},
				{Address: 0x200, Data: []byte{0xB, 0xB}},
			},
		},
		{
			name: "chain of three",
			in: []Block{
				{Address: 0x10, Data: []byte{3}},
				{Address: 0x0E, Data: []byte{1}},
				{Address: 0x0F, Data: []byte{2}},
			},
			want: []Block{
				{Address: 0x0E, Data: []byte{1, 2, 3}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l List
			for _, b := range tt.in {
				l.Add(b)
			}
			l.Coalesce()

			got := l.Blocks()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d blocks, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Address != tt.want[i].Address || !bytes.Equal(got[i].Data, tt.want[i].Data) {
					t.Errorf("block %d = %06X %v, want %06X %v",
						i, got[i].Address, got[i].Data, tt.want[i].Address, tt.want[i].Data)
				}
			}
		})
	}
}

func TestListCoalesceKeepsBytes(t *testing.T) {
	var l List
	l.Add(Block{Address: 0x300, Data: []byte{1, 2}})
	l.Add(Block{Address: 0x000, Data: []byte{3}})
	l.Add(Block{Address: 0x302, Data: []byte{4, 5, 6}})
	before := l.Size()

	l.Coalesce()

	if l.Size() != before {
		t.Errorf("Size() = %d after coalesce, want %d", l.Size(), before)
	}
	blocks := l.Blocks()
	for i := 1; i < len(blocks); i++ {
		if blocks[i-1].Address >= blocks[i].Address {
			t.Errorf("blocks not sorted: %v", blocks)
		}
		if blocks[i-1].CanCoalesce(blocks[i]) {
			t.Errorf("adjacent blocks left unmerged: %v", blocks)
		}
	}
}

func TestListPad32AndOutput(t *testing.T) {
	var l List
	l.Add(Block{Address: 0x1001, Data: []byte{1, 2, 3}})
	l.Add(Block{Address: 0x2000, Data: []byte{4, 5, 6, 7, 8}})
	l.Pad32()

	w := &recordingWriter{}
	if err := l.Output(context.Background(), 4, w); err != nil {
		t.Fatalf("Output: %v", err)
	}

	want := []recordedWrite{
		{addr: 0x1000, data: []byte{0, 1, 2, 3}},
		{addr: 0x1004, data: []byte{0, 0, 0, 0}},
		{addr: 0x2000, data: []byte{4, 5, 6, 7}},
		{addr: 0x2004, data: []byte{8, 0, 0, 0}},
	}
	if len(w.writes) != len(want) {
		t.Fatalf("got %d writes, want %d", len(w.writes), len(want))
	}
	for i := range want {
		if w.writes[i].addr != want[i].addr || !bytes.Equal(w.writes[i].data, want[i].data) {
			t.Errorf("write %d = %06X %v, want %06X %v", i, w.writes[i].addr, w.writes[i].data, want[i].addr, want[i].data)
		}
	}
}

func TestListAlign32(t *testing.T) {
	tests := []struct {
		name string
		in   []Block
		want []Block
	}{
		{
			name: "empty",
		},
		{
			name: "aligned block untouched",
			in:   []Block{{Address: 0x100, Data: []byte{1, 2, 3, 4}}},
			want: []Block{{Address: 0x100, Data: []byte{1, 2, 3, 4}}},
		},
		{
			name: "blocks sharing a word keep their bytes",
			in: []Block{
				{Address: 0x1003, Data: []byte{9}},
				{Address: 0x1000, Data: []byte{1, 2}},
			},
			want: []Block{
				{Address: 0x1000, Data: []byte{1, 2, 0, 9, 0, 0, 0, 0}},
			},
		},
		{
			name: "touching padded ranges merge",
			in: []Block{
				{Address: 0x2000, Data: []byte{1, 2}},
				{Address: 0x2004, Data: []byte{3}},
			},
			want: []Block{
				{Address: 0x2000, Data: []byte{1, 2, 0, 0, 3, 0, 0, 0}},
			},
		},
		{
			name: "distant blocks stay apart",
			in: []Block{
				{Address: 0x3001, Data: []byte{1}},
				{Address: 0x4000, Data: []byte{2, 3, 4, 5}},
			},
			want: []Block{
				{Address: 0x3000, Data: []byte{0, 1, 0, 0}},
				{Address: 0x4000, Data: []byte{2, 3, 4, 5}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l List
			for _, b := range tt.in {
				l.Add(b)
			}
			l.Align32()

			got := l.Blocks()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d blocks, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Address != tt.want[i].Address || !bytes.Equal(got[i].Data, tt.want[i].Data) {
					t.Errorf("block %d = %06X %v, want %06X %v",
						i, got[i].Address, got[i].Data, tt.want[i].Address, tt.want[i].Data)
				}
				if got[i].Address%4 != 0 || got[i].End()%4 != 0 {
					t.Errorf("block %d %v is not word aligned", i, got[i])
				}
			}
		})
	}
}

func TestWriterFunc(t *testing.T) {
	var gotAddr uint32
	w := WriterFunc(func(ctx context.Context, address uint32, data []byte) error {
		gotAddr = address
		return nil
	})
	if err := w.WriteBlock(context.Background(), 0xABCDEF, nil); err != nil {
		t.Fatal(err)
	}
	if gotAddr != 0xABCDEF {
		t.Errorf("address = %06X", gotAddr)
	}
}
