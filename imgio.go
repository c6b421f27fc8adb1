package bmpsteg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/image/bmp"

	"github.com/zedseven/bmpsteg/internal/codec"
	"github.com/zedseven/bmpsteg/internal/util"
)

// imgInfo describes a carrier, as read from its header.
type imgInfo struct {
	W, H int64
}

// PixelBytes returns the size of the pixel data, which is also the number of embeddable bits.
func (info imgInfo) PixelBytes() int64 {
	return AvailableBits(info.W, info.H)
}

// readCarrierHeader reads the fixed-size header from the start of the carrier.
func readCarrierHeader(s *codec.Stream) (hdr [HeaderSize]byte, info imgInfo, err error) {
	if err = s.ReadWindow(hdr[:]); err != nil {
		return hdr, imgInfo{}, corruptHeader(err)
	}
	info, err = parseCarrierHeader(hdr)
	return hdr, info, err
}

// parseCarrierHeader checks that hdr belongs to an uncompressed 24-bit BMP and pulls its dimensions.
func parseCarrierHeader(hdr [HeaderSize]byte) (imgInfo, error) {
	if _, err := bmp.DecodeConfig(bytes.NewReader(hdr[:])); err != nil {
		return imgInfo{}, &UnsupportedFormatError{Reason: err.Error()}
	}
	if bpp := binary.LittleEndian.Uint16(hdr[bppOffset:]); bpp != 24 {
		return imgInfo{}, &UnsupportedFormatError{Reason: fmt.Sprintf("%d bits per pixel, only 24 is supported", bpp)}
	}

	// Top-down images store a negative height.
	info := imgInfo{
		W: int64(binary.LittleEndian.Uint32(hdr[widthOffset:])),
		H: util.Abs(int32(binary.LittleEndian.Uint32(hdr[heightOffset:]))),
	}
	if info.W > 0 && info.H > math.MaxInt64/bytesPerPixel/info.W {
		return imgInfo{}, &UnsupportedFormatError{Reason: fmt.Sprintf("%dx%d pixels is too large", info.W, info.H)}
	}
	return info, nil
}

func corruptHeader(err error) error {
	if _, ok := err.(*codec.ExhaustedCarrierError); ok {
		return &UnsupportedFormatError{Reason: fmt.Sprintf("shorter than the %d-byte header", HeaderSize)}
	}
	return err
}
