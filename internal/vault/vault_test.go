package vault

import (
	"errors"
	"reflect"
	"testing"

	"solverd/internal/vfs"
)

func TestRoundTripKeepsOrder(t *testing.T) {
	tr := vfs.NewTree()
	_ = tr.Put("projects/p/ext_params", []byte(`{"deadline":null}`))
	_ = tr.Put("projects/p/models/m/model.onnx", []byte{0, 1, 2, 3})
	_ = tr.Put("projects/p/project_cfg.yaml", []byte("strategy: CTCLogic\n"))

	blob, err := Compress(tr, "pw")
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	out, err := Decompress(blob, "pw")
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !reflect.DeepEqual(out.Names(), tr.Names()) {
		t.Fatalf("order: %v", out.Names())
	}
	b, _ := out.ReadFile("projects/p/models/m/model.onnx")
	if !reflect.DeepEqual(b, []byte{0, 1, 2, 3}) {
		t.Fatalf("content: %v", b)
	}
}

func TestWrongPasswordIsCorrupt(t *testing.T) {
	blob, err := Seal("model.onnx", []byte("weights"), "right")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Decompress(blob, "wrong"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt, got %v", err)
	}
	blob[len(blob)-1] ^= 0xff
	if _, err := Decompress(blob, "right"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("tampered: want ErrCorrupt, got %v", err)
	}
	if _, err := Decompress([]byte("short"), "right"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("short: want ErrCorrupt, got %v", err)
	}
}
