// Package wire implements the DDARP binary wire protocol: a fixed 20-byte
// header followed by a variable TLV payload. It is the Go rendering of
// original_source/DDARP's src/protocol package, adjusted to the 2+2-byte
// TLV header spec.md §4.1 specifies (the Python original's wire_format.py
// additionally appends an optional SHA-256 checksum trailer; this codec
// does not, since spec.md's packet layout and S5/S6 vectors size the
// packet as exactly header_length+tlv_length with no trailer).
package wire

import "fmt"

// Version is the only wire version this codec understands.
const Version uint8 = 1

// HeaderSize is the fixed header length in bytes (offsets 0..19 of spec.md §4.1).
const HeaderSize = 20

// Flag bits within the header's flags byte.
const (
	FlagRequest      uint8 = 1 << 0
	FlagResponse     uint8 = 1 << 1
	FlagError        uint8 = 1 << 2
	FlagCompressed   uint8 = 1 << 3
	FlagEncrypted    uint8 = 1 << 4
	flagReservedMask uint8 = 0xE0 // bits 5-7
)

// MaxPacketSize bounds the inbound datagram buffer (spec.md §5 resource caps).
const MaxPacketSize = 8192

// Header is the fixed 20-byte DDARP packet header.
type Header struct {
	Version      uint8
	Flags        uint8
	HeaderLength uint16
	TunnelId     uint32
	Sequence     uint32
	Timestamp    uint32
	TLVLength    uint32
}

// Error is the codec's error taxonomy (spec.md §7 "Wire errors"). All are
// recoverable at the packet boundary: callers count them and move on.
type Error struct {
	Kind string
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func newErr(kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Error kind constants, matching spec.md §7's wire-error taxonomy.
const (
	KindUnsupportedVersion = "UnsupportedVersion"
	KindMalformedHeader    = "MalformedHeader"
	KindTruncatedTlv       = "TruncatedTlv"
	KindBadUtf8            = "BadUtf8"
	KindBadJson            = "BadJson"
	KindReservedFlagSet    = "ReservedFlagSet"
	KindPacketTooLarge     = "PacketTooLarge"
)

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind string) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
