package bmpsteg

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/crypto/sha3"

	"github.com/zedseven/bmpsteg/internal/codec"
	"github.com/zedseven/bmpsteg/internal/util"
)

// Secret is a file to hide: its contents and the extension recorded alongside them.
type Secret struct {
	// Extension is the secret's file extension, including the leading '.'.
	Extension string
	// Data is the raw contents of the secret.
	Data []byte
}

// HideConfig stores the configuration options for the Hide operation.
type HideConfig struct {
	// ImagePath is the path on disk to an uncompressed 24-bit BMP.
	ImagePath string
	// FilePath is the path on disk to the file to hide. Its extension is hidden with it.
	FilePath string
	// OutPath is the path on disk to write the output image. DefaultStegoPath is used if empty.
	OutPath string
}

// HideResult describes a completed hide.
type HideResult struct {
	Width, Height int64
	AvailableBits int64
	RequiredBits  int64
	// Written is the size of the stego image in bytes.
	Written int64
	// Digest is the SHA3-256 of the hidden data, for checking against what Dig recovers.
	Digest [32]byte
}

// Primary methods

// Encode copies the BMP read from carrier to dst, hiding secret in the least-significant bits of its pixel data.
//
// The capacity check runs before anything is written, so an InsufficientCapacityError leaves dst untouched.
// Any other failure may leave dst partially written, and its contents must be discarded.
func Encode(dst io.Writer, carrier io.Reader, secret Secret, observe Observer) (HideResult, error) {
	extLen, payloadLen := int64(len(secret.Extension)), int64(len(secret.Data))
	if extLen > math.MaxUint32 || payloadLen > math.MaxUint32 {
		return HideResult{}, &InvalidFormatError{"The secret is too large to describe with a 32-bit length."}
	}

	s := codec.NewStream(carrier, dst)
	var (
		hdr  [HeaderSize]byte
		info imgInfo
		res  HideResult
	)

	steps := []step{
		{StageCheckCapacity, func() (err error) {
			if hdr, info, err = readCarrierHeader(s); err != nil {
				return err
			}
			res.Width, res.Height = info.W, info.H
			res.AvailableBits, res.RequiredBits = info.PixelBytes(), RequiredBits(extLen, payloadLen)
			return checkCapacity(info, extLen, payloadLen)
		}},
		{StageCopyHeader, func() error { return s.WriteWindow(hdr[:]) }},
		{StageEmbedMagic, func() error { return s.EmbedBytes([]byte(MagicMarker)) }},
		{StageEmbedExtensionLength, func() error { return s.EmbedSize(uint32(extLen)) }},
		{StageEmbedExtension, func() error { return s.EmbedBytes([]byte(secret.Extension)) }},
		{StageEmbedPayloadLength, func() error { return s.EmbedSize(uint32(payloadLen)) }},
		{StageEmbedPayload, func() error { return s.EmbedBytes(secret.Data) }},
		{StageCopyTail, s.CopyRest},
	}

	err := runSteps(steps, s, observe)
	res.Written = s.Written
	if err != nil {
		return res, err
	}
	res.Digest = sha3.Sum256(secret.Data)
	return res, nil
}

// Hide hides a file from disk in a BMP on disk, and saves the result to a new image.
// The image is only moved into place at OutPath once it is complete, so a failed Hide never touches an existing file there.
func Hide(config *HideConfig, outputLevel OutputLevel) (HideResult, error) {
	// Input validation
	if len(config.ImagePath) <= 0 {
		return HideResult{}, &InvalidFormatError{"ImagePath is empty."}
	}
	if len(config.FilePath) <= 0 {
		return HideResult{}, &InvalidFormatError{"FilePath is empty."}
	}
	if len(config.OutPath) <= 0 {
		config.OutPath = DefaultStegoPath
	}
	if !util.HasExt(config.ImagePath, ".bmp") {
		return HideResult{}, &UnsupportedFormatError{Path: config.ImagePath, Reason: "the image must be a .bmp file"}
	}
	if !util.HasExt(config.FilePath, secretExtensions...) {
		return HideResult{}, &UnsupportedFormatError{Path: config.FilePath,
			Reason: fmt.Sprintf("the file to hide must end in one of %v", secretExtensions)}
	}
	if filepath.Clean(config.OutPath) == filepath.Clean(config.ImagePath) {
		return HideResult{}, &InvalidFormatError{"OutPath must differ from ImagePath."}
	}

	printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Bmpsteg v%v.", Version()))
	printlnLvl(outputLevel, OutputDebug, "This tool has been set to display debug output.")

	printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Opening the image at '%v'...", config.ImagePath))
	imgFile, err := os.Open(config.ImagePath)
	if err != nil {
		return HideResult{}, &FileOpenError{Path: config.ImagePath, Err: err}
	}
	defer closeLogged(imgFile, config.ImagePath, outputLevel)

	printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Reading the file at '%v'...", config.FilePath))
	data, err := os.ReadFile(config.FilePath)
	if err != nil {
		return HideResult{}, &FileOpenError{Path: config.FilePath, Err: err}
	}
	secret := Secret{Extension: util.Ext(config.FilePath), Data: data}
	printlnLvl(outputLevel, OutputInfo, fmt.Sprintf("Input file: %d B, extension '%v'", len(data), secret.Extension))

	observe := stagePrinter(outputLevel)
	observe.notify(Event{Stage: StageOpenSources})

	printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Writing the output image to '%v'...", config.OutPath))
	var res HideResult
	err = commitFile(config.OutPath, outputLevel, func(w io.Writer) (err error) {
		res, err = Encode(w, bufio.NewReader(imgFile), secret, observe)
		return err
	})
	if err != nil {
		return res, err
	}

	printlnLvl(outputLevel, OutputInfo,
		fmt.Sprintf("Image info:\n\tDimensions: %dx%dpx\n\tAvailable bits: %d\n\tRequired bits: %d\n\tPayload SHA3-256: %v",
			res.Width, res.Height, res.AvailableBits, res.RequiredBits, hex.EncodeToString(res.Digest[:])))
	printlnLvl(outputLevel, OutputSteps, "All done! c:")

	return res, nil
}

// Helper functions

func closeLogged(c io.Closer, path string, outputLevel OutputLevel) {
	if err := c.Close(); err != nil {
		printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Error closing the file '%v': %v", path, err))
	}
}

// commitFile runs write against a temporary file next to path, and renames it over path only if write succeeds.
// On failure the temporary file is removed and path is left as it was.
func commitFile(path string, outputLevel OutputLevel, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &FileOpenError{Path: path, Err: err}
	}

	bw := bufio.NewWriter(tmp)
	err = write(bw)
	if err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = tmp.Chmod(0o644)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		if rerr := os.Rename(tmp.Name(), path); rerr != nil {
			err = &FileOpenError{Path: path, Err: rerr}
		}
	}
	if err != nil {
		printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Discarding the incomplete output for '%v'.", path))
		removeLogged(tmp.Name(), outputLevel)
		return err
	}
	return nil
}

func removeLogged(path string, outputLevel OutputLevel) error {
	err := os.Remove(path)
	if err != nil {
		printlnLvl(outputLevel, OutputSteps, fmt.Sprintf("Unable to remove '%v': %v", path, err))
	}
	return err
}
