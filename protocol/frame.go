package protocol

import "fmt"

// BuildRequest constructs a complete request frame.
//
// Frame structure:
//
//	[SYNC][CMD][ADDR_H][ADDR_M][ADDR_L][LEN_H][LEN_L][DATA...][LRC]
//
// The length field carries len(data) when data is non-empty and readLength
// otherwise. Address and length are big-endian.
func BuildRequest(command byte, address uint32, data []byte, readLength int) ([]byte, error) {
	length := readLength
	if len(data) > 0 {
		length = len(data)
	}

	if address > MaxAddress {
		return nil, &FrameError{Field: "address", Value: int64(address), Max: MaxAddress}
	}
	if length < 0 || length > MaxLength {
		return nil, &FrameError{Field: "length", Value: int64(length), Max: MaxLength}
	}

	frame := make([]byte, HeaderSize, HeaderSize+len(data)+ChecksumSize)
	frame[0] = RequestSync
	frame[1] = command
	putUint24(frame[2:5], address)
	frame[5] = byte(length >> 8)
	frame[6] = byte(length)

	frame = append(frame, data...)
	frame = append(frame, CalculateLRC(frame[:HeaderSize], data))

	return frame, nil
}

// RequestHeader is the decoded form of a 7-byte request header.
type RequestHeader struct {
	Command byte
	Address uint32
	Length  int
}

// ParseRequestHeader decodes a request header. Only the fields needed to
// locate the frame boundaries are interpreted.
func ParseRequestHeader(header []byte) (RequestHeader, error) {
	if len(header) != HeaderSize {
		return RequestHeader{}, fmt.Errorf("header must be exactly %d bytes, got %d", HeaderSize, len(header))
	}
	if header[0] != RequestSync {
		return RequestHeader{}, fmt.Errorf("invalid request sync: got 0x%02X, expected 0x%02X", header[0], RequestSync)
	}

	return DecodeRequestHeader(header), nil
}

// DecodeRequestHeader reads the fields of a request header without checking
// the sync byte. header must hold at least HeaderSize bytes.
func DecodeRequestHeader(header []byte) RequestHeader {
	return RequestHeader{
		Command: header[1],
		Address: uint32(header[2])<<16 | uint32(header[3])<<8 | uint32(header[4]),
		Length:  int(header[5])<<8 | int(header[6]),
	}
}

// CarriesData reports whether a request with this header is followed by
// Length data bytes on the wire. Only write-memory requests carry a payload.
func (h RequestHeader) CarriesData() bool {
	return h.Command == CmdWriteMem
}

// ExpectsData reports whether the response to this request carries Length
// data bytes between the status bytes and the checksum.
func (h RequestHeader) ExpectsData() bool {
	return h.Command == CmdReadMem && h.Length > 0
}

func putUint24(b []byte, v uint32) {
	_ = b[2]
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}
