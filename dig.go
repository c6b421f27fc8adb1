package bmpsteg

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/sha3"

	"github.com/zedseven/bmpsteg/internal/codec"
	"github.com/zedseven/bmpsteg/internal/util"
)

// Types

// DigConfig stores the configuration options for the Dig operation.
type DigConfig struct {
	ImagePath   string      // The path on disk to a stego image produced by Hide.
	OutPath     string      // The path on disk to write the output file. The hidden extension is appended if it has none.
	OutputLevel OutputLevel // The amount of output to provide.
}

// DigResult describes a completed dig.
type DigResult struct {
	OutPath   string   // Where the recovered file was written.
	Extension string   // The hidden extension.
	Size      int64    // The size of the recovered file.
	Digest    [32]byte // The SHA3-256 of the recovered file.
}

// Primary methods

// Decode reads a stego image from carrier and returns the secret hidden in it.
// A missing marker, or lengths that point past the end of the image, yield a CorruptedStegoError.
func Decode(carrier io.Reader, observe Observer) (Secret, error) {
	s := codec.NewReader(carrier)
	var (
		info               imgInfo
		extLen, payloadLen uint32
		secret             Secret
	)
	remainingBits := func() int64 {
		return info.PixelBytes() - (s.Read - HeaderSize)
	}

	steps := []step{
		{StageSkipHeader, func() (err error) {
			_, info, err = readCarrierHeader(s)
			return err
		}},
		{StageVerifyMagic, func() error {
			magic, err := s.ExtractBytes(len(MagicMarker))
			if err != nil {
				return corruptOnShortCarrier(err)
			}
			if string(magic) != MagicMarker {
				return &CorruptedStegoError{Reason: fmt.Sprintf("Expected the marker %q but found %q.", MagicMarker, magic)}
			}
			return nil
		}},
		{StageExtractExtensionLength, func() (err error) {
			if extLen, err = s.ExtractSize(); err != nil {
				return corruptOnShortCarrier(err)
			}
			return checkFits("extension", extLen, remainingBits())
		}},
		{StageExtractExtension, func() error {
			ext, err := s.ExtractBytes(int(extLen))
			if err != nil {
				return corruptOnShortCarrier(err)
			}
			if len(ext) > 0 && ext[0] != '.' {
				return &CorruptedStegoError{Reason: fmt.Sprintf("The hidden extension %q does not start with '.'.", ext)}
			}
			secret.Extension = string(ext)
			return nil
		}},
		{StageExtractPayloadLength, func() (err error) {
			if payloadLen, err = s.ExtractSize(); err != nil {
				return corruptOnShortCarrier(err)
			}
			return checkFits("file", payloadLen, remainingBits())
		}},
		{StageExtractPayload, func() (err error) {
			if secret.Data, err = s.ExtractBytes(int(payloadLen)); err != nil {
				return corruptOnShortCarrier(err)
			}
			return nil
		}},
	}

	if err := runSteps(steps, s, observe); err != nil {
		return Secret{}, err
	}
	return secret, nil
}

// Dig extracts a hidden file from a stego image on disk, and saves it to a new file.
func Dig(config DigConfig) (DigResult, error) {
	// Input validation
	if len(config.ImagePath) <= 0 {
		return DigResult{}, &InvalidFormatError{"ImagePath is empty."}
	}
	if !util.HasExt(config.ImagePath, ".bmp") {
		return DigResult{}, &UnsupportedFormatError{Path: config.ImagePath, Reason: "the image must be a .bmp file"}
	}

	printlnLvl(config.OutputLevel, OutputDebug, "This tool has been set to display debug output.")

	printlnLvl(config.OutputLevel, OutputSteps, fmt.Sprintf("Opening the image at '%v'...", config.ImagePath))
	imgFile, err := os.Open(config.ImagePath)
	if err != nil {
		return DigResult{}, &FileOpenError{Path: config.ImagePath, Err: err}
	}
	defer closeLogged(imgFile, config.ImagePath, config.OutputLevel)

	observe := stagePrinter(config.OutputLevel)
	observe.notify(Event{Stage: StageOpenSources})

	secret, err := Decode(bufio.NewReader(imgFile), observe)
	if err != nil {
		return DigResult{}, err
	}

	outPath := config.OutPath
	if len(outPath) <= 0 {
		outPath = DefaultDigName
	}
	if len(util.Ext(outPath)) <= 0 {
		outPath += secret.Extension
	}
	if filepath.Clean(outPath) == filepath.Clean(config.ImagePath) {
		return DigResult{}, &InvalidFormatError{"OutPath must differ from ImagePath."}
	}

	printlnLvl(config.OutputLevel, OutputSteps, fmt.Sprintf("Writing to the output file at '%v'...", outPath))
	err = commitFile(outPath, config.OutputLevel, func(w io.Writer) error {
		_, err := w.Write(secret.Data)
		return err
	})
	if err != nil {
		return DigResult{}, err
	}

	res := DigResult{
		OutPath:   outPath,
		Extension: secret.Extension,
		Size:      int64(len(secret.Data)),
		Digest:    sha3.Sum256(secret.Data),
	}
	printlnLvl(config.OutputLevel, OutputInfo,
		fmt.Sprintf("Output file size: %d B\nOutput file SHA3-256: %v", res.Size, hex.EncodeToString(res.Digest[:])))
	printlnLvl(config.OutputLevel, OutputSteps, "All done! c:")

	return res, nil
}

// Helper functions

func checkFits(section string, n uint32, remainingBits int64) error {
	if int64(n)*bitsPerByte > remainingBits {
		return &CorruptedStegoError{Reason: fmt.Sprintf("The hidden %v length of %d B is more than the image can hold.", section, n)}
	}
	return nil
}
