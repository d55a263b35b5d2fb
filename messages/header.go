// Package messages implements the wire messages that carry blocks and
// votes between peers: publish, confirm_req and confirm_ack, each
// prefixed by a fixed 8-byte header whose extension bits encode the
// embedded block type and vote hash count. The transport beneath
// these messages (TCP framing, handshake, peer discovery) lives
// outside this module; this package defines only the Channel
// abstraction the core requires from it.
package messages

import (
	"encoding/binary"
	"errors"

	"github.com/coreledger/coreledger-node/types"
)

// MessageType tags a wire message.
type MessageType uint8

const (
	TypeInvalid    MessageType = 0
	TypeKeepalive  MessageType = 2
	TypePublish    MessageType = 3
	TypeConfirmReq MessageType = 4
	TypeConfirmAck MessageType = 5
)

func (t MessageType) String() string {
	switch t {
	case TypeKeepalive:
		return "keepalive"
	case TypePublish:
		return "publish"
	case TypeConfirmReq:
		return "confirm_req"
	case TypeConfirmAck:
		return "confirm_ack"
	default:
		return "invalid"
	}
}

// HeaderSize is the fixed wire width of a message header.
const HeaderSize = 8

// Extension-bit layout: bits 8..11 hold the embedded block type for
// publish, bits 12..15 hold the vote
// hash count for confirm_ack and the pair count for confirm_req.
const (
	extBlockTypeShift = 8
	extBlockTypeMask  = 0x0f00
	extCountShift     = 12
	extCountMask      = 0xf000
)

var (
	ErrShortMessage       = errors.New("messages: buffer too short")
	ErrBadMagic           = errors.New("messages: bad magic")
	ErrUnknownType        = errors.New("messages: unknown message type")
	ErrExtensionsMismatch = errors.New("messages: header extensions disagree with payload")
)

// Header is the fixed preamble of every message: network magic, the
// three protocol version fields, the message type and the extension
// bits.
type Header struct {
	Magic        [2]byte
	VersionMax   uint8
	VersionUsing uint8
	VersionMin   uint8
	Type         MessageType
	Extensions   uint16
}

// Network identifies which network's traffic a header belongs to; the
// second magic byte. The first is always 'R'.
type Network byte

const (
	NetworkLive Network = 'C'
	NetworkBeta Network = 'B'
	NetworkTest Network = 'X'
)

// ProtocolInfo is the construction-time network parameter set for
// building headers.
type ProtocolInfo struct {
	Network      Network
	VersionMax   uint8
	VersionUsing uint8
	VersionMin   uint8
}

func newHeader(p ProtocolInfo, t MessageType, extensions uint16) Header {
	return Header{
		Magic:        [2]byte{'R', byte(p.Network)},
		VersionMax:   p.VersionMax,
		VersionUsing: p.VersionUsing,
		VersionMin:   p.VersionMin,
		Type:         t,
		Extensions:   extensions,
	}
}

// BlockType reads the embedded block type from the extension bits.
func (h Header) BlockType() types.BlockType {
	return types.BlockType((h.Extensions & extBlockTypeMask) >> extBlockTypeShift)
}

// Count reads the vote hash count (confirm_ack) or pair count
// (confirm_req) from the extension bits.
func (h Header) Count() int {
	return int((h.Extensions & extCountMask) >> extCountShift)
}

// Serialize writes the 8-byte header: magic ‖ versions ‖ type ‖
// extensions(2, LE).
func (h Header) Serialize() []byte {
	out := make([]byte, HeaderSize)
	out[0] = h.Magic[0]
	out[1] = h.Magic[1]
	out[2] = h.VersionMax
	out[3] = h.VersionUsing
	out[4] = h.VersionMin
	out[5] = byte(h.Type)
	binary.LittleEndian.PutUint16(out[6:8], h.Extensions)
	return out
}

// DeserializeHeader reads a header, checking the magic's leading byte.
func DeserializeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortMessage
	}
	if buf[0] != 'R' {
		return Header{}, ErrBadMagic
	}
	return Header{
		Magic:        [2]byte{buf[0], buf[1]},
		VersionMax:   buf[2],
		VersionUsing: buf[3],
		VersionMin:   buf[4],
		Type:         MessageType(buf[5]),
		Extensions:   binary.LittleEndian.Uint16(buf[6:8]),
	}, nil
}
