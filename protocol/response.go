package protocol

import "fmt"

// Response holds a decoded device response.
type Response struct {
	Status0  byte
	Status1  byte
	Data     []byte
	Checksum byte
}

// ParseResponse decodes a complete response frame whose data length is
// already known to the caller. The length is not retransmitted by the device.
//
// Response frame structure:
//
//	[SYNC][STATUS0][STATUS1][DATA...][LRC]
//
// The checksum byte is returned but not verified; use VerifyResponse for that.
func ParseResponse(frame []byte, dataLength int) (*Response, error) {
	expected := MinResponseSize + dataLength
	if len(frame) != expected {
		return nil, fmt.Errorf("frame length mismatch: got %d bytes, expected %d", len(frame), expected)
	}
	if frame[0] != ResponseSync {
		return nil, fmt.Errorf("invalid response sync: got 0x%02X, expected 0x%02X", frame[0], ResponseSync)
	}

	resp := &Response{
		Status0:  frame[1],
		Status1:  frame[2],
		Checksum: frame[len(frame)-1],
	}
	if dataLength > 0 {
		resp.Data = frame[ResponsePrefixSize : ResponsePrefixSize+dataLength]
	}

	return resp, nil
}

// VerifyResponse reports whether the response checksum equals the XOR of
// the preceding response bytes.
func (r *Response) VerifyResponse() bool {
	return r.Checksum == r.ExpectedChecksum()
}

// ExpectedChecksum recomputes the checksum the response should carry.
func (r *Response) ExpectedChecksum() byte {
	return CalculateResponseLRC([]byte{ResponseSync, r.Status0, r.Status1}, r.Data)
}
