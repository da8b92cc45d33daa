package dma

import "testing"

func newFakeMemory() (read ReadSource, write WriteOAM, oam *[0xA0]byte) {
	src := make([]byte, 0x10000)
	for i := range src {
		src[i] = byte(i)
	}
	var out [0xA0]byte
	read = func(addr uint16) byte { return src[addr] }
	write = func(index int, v byte) { out[index] = v }
	return read, write, &out
}

func TestDMA_TransferTakes640Dots(t *testing.T) {
	read, write, oam := newFakeMemory()
	d := New(read, write)
	d.Write(0xC0) // source = 0xC000

	d.Update(639)
	if !d.Active() {
		t.Fatalf("DMA completed before 640 dots elapsed")
	}
	d.Update(1)
	if d.Active() {
		t.Fatalf("DMA still active after 640 dots")
	}
	for i := 0; i < 0xA0; i++ {
		want := byte(0xC000 + i)
		if oam[i] != want {
			t.Fatalf("oam[%02X] got %02X want %02X", i, oam[i], want)
		}
	}
}

func TestDMA_OneBytePerFourDots(t *testing.T) {
	read, write, oam := newFakeMemory()
	d := New(read, write)
	d.Write(0xC0)

	d.Update(4)
	if oam[0] != 0x00 {
		t.Fatalf("oam[0] got %02X want 00 after first M-cycle", oam[0])
	}
	for i := 1; i < 0xA0; i++ {
		if oam[i] != 0 {
			t.Fatalf("oam[%d] written early", i)
		}
	}
	d.Update(4)
	if oam[1] != 0x01 {
		t.Fatalf("oam[1] got %02X want 01 after second M-cycle", oam[1])
	}
}

func TestDMA_SourceAboveDFIsIgnored(t *testing.T) {
	read, write, oam := newFakeMemory()
	d := New(read, write)
	d.Write(0xE0) // > 0xDF: programming error, not serviced

	if d.Active() {
		t.Fatalf("DMA should not start for out-of-range source")
	}
	d.Update(1000)
	for i := 0; i < 0xA0; i++ {
		if oam[i] != 0 {
			t.Fatalf("oam[%d] was written despite out-of-range source", i)
		}
	}
}

func TestDMA_ReadReturnsLastWrittenRegister(t *testing.T) {
	read, write, _ := newFakeMemory()
	d := New(read, write)
	d.Write(0x55)
	if got := d.Read(); got != 0x55 {
		t.Fatalf("Read got %02X want 55", got)
	}
	d.Write(0xE0) // even an ignored (out-of-range) write updates the register
	if got := d.Read(); got != 0xE0 {
		t.Fatalf("Read got %02X want E0", got)
	}
}
