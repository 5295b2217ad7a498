package de1proto

import "github.com/srg/de1bridge/internal/codec"

// MmrRead is a decoded MMR read response from READ_FROM_MMR, as
// returned by DecodeMMRReadResponse. The session layer does not
// subscribe to READ_FROM_MMR, so no MmrRead is emitted as an event.
type MmrRead struct {
	Address uint32
	Bytes   []byte
}

// EncodeMMRReadRequest builds the READ_FROM_MMR write payload:
// [len][u24be(address)].
func EncodeMMRReadRequest(address uint32, length uint8) []byte {
	addr := codec.EncodeU24P0(address)
	return []byte{length, addr[0], addr[1], addr[2]}
}

// EncodeMMRWriteRequest builds the WRITE_TO_MMR write payload:
// [len][u24be(address)][body...]. The length byte is the body length
// only, matching the firmware's framing.
func EncodeMMRWriteRequest(address uint32, body []byte) []byte {
	addr := codec.EncodeU24P0(address)
	payload := make([]byte, 0, 1+3+len(body))
	payload = append(payload, byte(len(body)), addr[0], addr[1], addr[2])
	payload = append(payload, body...)
	return payload
}

// DecodeMMRReadResponse parses a READ_FROM_MMR notification into an
// address and its associated bytes. Payload shape mirrors the write
// request: [len][u24be(address)][body...].
func DecodeMMRReadResponse(data []byte) (MmrRead, error) {
	address, off, err := codec.ReadU24BE(data, 1)
	if err != nil {
		return MmrRead{}, err
	}
	return MmrRead{Address: address, Bytes: append([]byte(nil), data[off:]...)}, nil
}

// EncodeUSBChargerWrite builds the 4-byte USB_CHARGER MMR write body;
// only byte 0 is meaningful.
func EncodeUSBChargerWrite(enable bool) []byte {
	body := make([]byte, 4)
	if enable {
		body[0] = 1
	}
	return body
}

// EncodeFanThresholdWrite builds the 4-byte FAN_THRESHOLD MMR write
// body; only byte 0 is meaningful.
func EncodeFanThresholdWrite(thresholdC uint8) []byte {
	body := make([]byte, 4)
	body[0] = thresholdC
	return body
}
