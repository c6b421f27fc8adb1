package bmpsteg

// AvailableBits returns the number of bits a w×h carrier can hold: one per pixel-data byte.
func AvailableBits(w, h int64) int64 {
	return w * h * bytesPerPixel
}

// RequiredBits returns the number of bits needed to hide a payload of payloadLen bytes whose
// extension is extLen bytes long. The header is counted as a flat HeaderSize, not HeaderSize*8,
// so that the threshold matches images produced by other encoders of this layout.
func RequiredBits(extLen, payloadLen int64) int64 {
	return HeaderSize +
		int64(len(MagicMarker))*bitsPerByte +
		sizeFieldBits + extLen*bitsPerByte +
		sizeFieldBits + payloadLen*bitsPerByte
}

// embeddedBytes returns the number of carrier bytes the embedded sections occupy.
func embeddedBytes(extLen, payloadLen int64) int64 {
	return (int64(len(MagicMarker))+extLen+payloadLen)*bitsPerByte + 2*sizeFieldBits
}

// checkCapacity fails with an InsufficientCapacityError unless info can hold the secret.
func checkCapacity(info imgInfo, extLen, payloadLen int64) error {
	available, required := info.PixelBytes(), RequiredBits(extLen, payloadLen)
	if available < required {
		return &InsufficientCapacityError{Available: available, Required: required}
	}
	return nil
}
