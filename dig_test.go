package bmpsteg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/zedseven/bmpsteg/internal/codec"
	"github.com/zedseven/bmpsteg/internal/lsb"
)

func hideInMemory(t *testing.T, carrier []byte, secret Secret) []byte {
	t.Helper()
	var out bytes.Buffer
	if _, err := Encode(&out, bytes.NewReader(carrier), secret, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return out.Bytes()
}

func TestDecode_StageOrder(t *testing.T) {
	stego := hideInMemory(t, encodeBMP(t, makeTestImage(16, 16)), Secret{Extension: ".c", Data: []byte("int")})

	var stages []Stage
	observe := func(ev Event) { stages = append(stages, ev.Stage) }
	if _, err := Decode(bytes.NewReader(stego), observe); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []Stage{
		StageSkipHeader, StageVerifyMagic, StageExtractExtensionLength, StageExtractExtension,
		StageExtractPayloadLength, StageExtractPayload, StageDone,
	}
	if !reflect.DeepEqual(stages, want) {
		t.Fatalf("stages: got %v want %v", stages, want)
	}
}

func TestDecode_PlainImage(t *testing.T) {
	carrier := encodeBMP(t, makeFlatImage(32, 32))

	_, err := Decode(bytes.NewReader(carrier), nil)
	var e *CorruptedStegoError
	if !errors.As(err, &e) {
		t.Fatalf("expected *CorruptedStegoError, got %T (%v)", err, err)
	}
}

func TestDecode_LengthBeyondCarrier(t *testing.T) {
	stego := hideInMemory(t, encodeBMP(t, makeTestImage(16, 16)), Secret{Extension: ".txt", Data: []byte("x")})

	// Overwrite the extension length, which follows the header and the marker.
	start := HeaderSize + len(MagicMarker)*lsb.ByteWindow
	var w [lsb.SizeWindow]byte
	copy(w[:], stego[start:])
	w = lsb.EmbedSize(0xfffffff0, w)
	copy(stego[start:], w[:])

	_, err := Decode(bytes.NewReader(stego), nil)
	var e *CorruptedStegoError
	if !errors.As(err, &e) {
		t.Fatalf("expected *CorruptedStegoError, got %T (%v)", err, err)
	}
}

func TestDecode_ForgedDimensionsDoNotPreallocate(t *testing.T) {
	stego := hideInMemory(t, encodeBMP(t, makeTestImage(16, 16)), Secret{Extension: ".txt", Data: []byte("x")})

	// Claim a huge image so the length check passes, then ask for a 4 GiB payload.
	binary.LittleEndian.PutUint32(stego[widthOffset:], 1<<17)
	binary.LittleEndian.PutUint32(stego[heightOffset:], 1<<17)
	start := HeaderSize + (len(MagicMarker)+len(".txt"))*lsb.ByteWindow + lsb.SizeWindow
	var w [lsb.SizeWindow]byte
	copy(w[:], stego[start:])
	w = lsb.EmbedSize(0xffffffff, w)
	copy(stego[start:], w[:])

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := Decode(bytes.NewReader(stego), nil)
	runtime.ReadMemStats(&after)

	var e *CorruptedStegoError
	if !errors.As(err, &e) {
		t.Fatalf("expected *CorruptedStegoError, got %T (%v)", err, err)
	}
	var ex *codec.ExhaustedCarrierError
	if !errors.As(err, &ex) {
		t.Fatalf("expected the cause to be *codec.ExhaustedCarrierError, got %v", err)
	}
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 64<<20 {
		t.Fatalf("decoding a short image allocated %d B", allocated)
	}
}

func TestDecode_TruncatedImage(t *testing.T) {
	stego := hideInMemory(t, encodeBMP(t, makeTestImage(32, 32)), Secret{Extension: ".txt", Data: make([]byte, 200)})
	stego = stego[:HeaderSize+400]

	_, err := Decode(bytes.NewReader(stego), nil)
	var e *CorruptedStegoError
	if !errors.As(err, &e) {
		t.Fatalf("expected *CorruptedStegoError, got %T (%v)", err, err)
	}
	var ex *codec.ExhaustedCarrierError
	if !errors.As(err, &ex) {
		t.Fatalf("expected the short read to be wrapped, got %v", err)
	}
}

func TestDecode_BadExtension(t *testing.T) {
	stego := hideInMemory(t, encodeBMP(t, makeTestImage(16, 16)), Secret{Extension: "txt", Data: []byte("x")})

	_, err := Decode(bytes.NewReader(stego), nil)
	var e *CorruptedStegoError
	if !errors.As(err, &e) {
		t.Fatalf("expected *CorruptedStegoError, got %T (%v)", err, err)
	}
}

func TestDig_Validation(t *testing.T) {
	dir := t.TempDir()

	_, err := Dig(DigConfig{})
	var invalid *InvalidFormatError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidFormatError, got %T (%v)", err, err)
	}

	_, err = Dig(DigConfig{ImagePath: filepath.Join(dir, "stego.jpg")})
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedFormatError, got %T (%v)", err, err)
	}

	_, err = Dig(DigConfig{ImagePath: filepath.Join(dir, "missing.bmp")})
	var open *FileOpenError
	if !errors.As(err, &open) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected *FileOpenError for a missing file, got %T (%v)", err, err)
	}
}

func TestDig_PlainImageWritesNothing(t *testing.T) {
	dir := t.TempDir()
	imgPath := writeTempFile(t, dir, "plain.bmp", encodeBMP(t, makeFlatImage(16, 16)))
	outPath := filepath.Join(dir, "recovered.txt")

	_, err := Dig(DigConfig{ImagePath: imgPath, OutPath: outPath})
	var e *CorruptedStegoError
	if !errors.As(err, &e) {
		t.Fatalf("expected *CorruptedStegoError, got %T (%v)", err, err)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat returned %v", err)
	}
}

func TestStage_String(t *testing.T) {
	if StageEmbedMagic.String() != "EmbedMagic" || StageFailed.String() != "Failed" {
		t.Fatalf("unexpected stage names")
	}
	if Stage(-1).String() != "<unknown>" {
		t.Fatalf("expected <unknown> for an invalid stage")
	}
}
