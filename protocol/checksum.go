package protocol

// lrcHeaderBytes is the number of leading header bytes folded into the LRC.
//
// The firmware folds SYNC, CMD, the three address bytes and the HIGH length
// byte only. The low length byte (header index 6) is never part of the
// checksum. Existing devices expect this, so it must not be changed.
const lrcHeaderBytes = 6

// CalculateLRC computes the request checksum for a 7-byte header and its data.
//
// The result is the XOR of header[0..6) and every byte of data.
// header[6] does not contribute.
func CalculateLRC(header []byte, data []byte) byte {
	var lrc byte
	n := lrcHeaderBytes
	if len(header) < n {
		n = len(header)
	}
	for _, b := range header[:n] {
		lrc ^= b
	}
	return xorFold(lrc, data)
}

// CalculateResponseLRC computes the XOR of every response byte that precedes
// the trailing checksum: SYNC, STATUS0, STATUS1 and any data.
//
// Device responses are not verified by default; see the debugport package.
func CalculateResponseLRC(prefix []byte, data []byte) byte {
	return xorFold(xorFold(0, prefix), data)
}

func xorFold(lrc byte, data []byte) byte {
	for _, b := range data {
		lrc ^= b
	}
	return lrc
}
