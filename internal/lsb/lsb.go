// Package lsb hides data in the least-significant bit of fixed-size carrier byte windows.
// Every data bit costs exactly one carrier byte, and bits are always laid out most-significant first.
package lsb

import (
	"github.com/zedseven/binmani"
)

const (
	// ByteWindow is the number of carrier bytes used to hold one data byte.
	ByteWindow = 8
	// SizeWindow is the number of carrier bytes used to hold one 32-bit size field.
	SizeWindow = 32
)

// EmbedByte writes the bits of b into the lowest bit of each byte of w, most-significant bit first.
// The upper 7 bits of every window byte are left untouched.
func EmbedByte(b byte, w [ByteWindow]byte) [ByteWindow]byte {
	for i := uint8(0); i < ByteWindow; i++ {
		bit := uint16(b>>(ByteWindow-1-i)) & 1
		w[i] = byte(binmani.WriteTo(uint16(w[i]), 0, 1, bit))
	}
	return w
}

// ExtractByte reassembles the byte hidden in w by EmbedByte.
func ExtractByte(w [ByteWindow]byte) byte {
	var b uint16
	for i := uint8(0); i < ByteWindow; i++ {
		b = binmani.WriteTo(b, ByteWindow-1-i, 1, uint16(w[i]&1))
	}
	return byte(b)
}

// EmbedSize writes the 32 bits of n into the lowest bit of each byte of w, most-significant bit first.
// binmani only works on uint16 values, so it sets each window byte's bit here but can't hold n itself.
func EmbedSize(n uint32, w [SizeWindow]byte) [SizeWindow]byte {
	for i := 0; i < SizeWindow; i++ {
		bit := uint16(n>>uint(SizeWindow-1-i)) & 1
		w[i] = byte(binmani.WriteTo(uint16(w[i]), 0, 1, bit))
	}
	return w
}

// ExtractSize reassembles the size hidden in w by EmbedSize.
func ExtractSize(w [SizeWindow]byte) uint32 {
	// Shifted in by hand: binmani.WriteTo tops out at 16 bits.
	var n uint32
	for i := 0; i < SizeWindow; i++ {
		n = n<<1 | uint32(w[i]&1)
	}
	return n
}
