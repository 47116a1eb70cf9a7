package shader

import (
	"strings"
	"testing"
)

const spirvMagic = 0x07230203

func TestCopyBufferSPIRV(t *testing.T) {
	words, err := CopyBufferSPIRV()
	if err != nil {
		t.Fatalf("CopyBufferSPIRV: %v", err)
	}
	if len(words) < 5 {
		t.Fatalf("SPIR-V too short: %d words", len(words))
	}
	if words[0] != spirvMagic {
		t.Errorf("magic = %#x, want %#x", words[0], spirvMagic)
	}

	again, err := CopyBufferSPIRV()
	if err != nil {
		t.Fatal(err)
	}
	if &again[0] != &words[0] {
		t.Error("kernel compiled twice")
	}
}

func TestCopyBufferMSL(t *testing.T) {
	m, err := CopyBufferMSL()
	if err != nil {
		t.Fatalf("CopyBufferMSL: %v", err)
	}
	if m.EntryPoint == "" {
		t.Fatal("empty entry point")
	}
	if !strings.Contains(m.Source, "kernel") {
		t.Error("MSL source has no kernel function")
	}
	if !strings.Contains(m.Source, m.EntryPoint) {
		t.Errorf("MSL source does not define %q", m.EntryPoint)
	}
}

func TestCopyParams_Bytes(t *testing.T) {
	b := CopyParams{SrcOffset: 2, DstOffset: 0x0102, Size: 16}.Bytes()
	want := []byte{2, 0, 0, 0, 2, 1, 0, 0, 16, 0, 0, 0, 0, 0, 0, 0}
	if string(b) != string(want) {
		t.Errorf("Bytes = %v, want %v", b, want)
	}
}

func TestWords(t *testing.T) {
	got := Words([]byte{0x03, 0x02, 0x23, 0x07, 0xff})
	if len(got) != 1 || got[0] != spirvMagic {
		t.Errorf("Words = %#x", got)
	}
}
