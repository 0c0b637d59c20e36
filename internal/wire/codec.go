package wire

import "encoding/binary"

// Packet is a fully decoded DDARP packet: header fields plus the TLVs found
// in its payload.
type Packet struct {
	Header Header
	TLVs   []TLV

	// SkippedUnknown counts TLV records that were skipped because their
	// type was not in the registry (only populated when strict=false).
	SkippedUnknown int
}

// Encode renders a packet to wire bytes. HeaderLength is always forced to
// HeaderSize and TLVLength is recomputed from the TLV slice; callers do not
// need to keep those fields consistent by hand.
func Encode(p Packet) ([]byte, error) {
	if p.Header.Version != Version {
		return nil, newErr(KindUnsupportedVersion, "cannot encode version %d", p.Header.Version)
	}
	if p.Header.Flags&flagReservedMask != 0 {
		return nil, newErr(KindReservedFlagSet, "reserved flag bits set: 0x%02x", p.Header.Flags)
	}

	tlvLen := 0
	for _, t := range p.TLVs {
		tlvLen += TLVHeaderSize + len(t.Value)
	}
	total := HeaderSize + tlvLen
	if total > MaxPacketSize {
		return nil, newErr(KindPacketTooLarge, "encoded packet would be %d bytes, max %d", total, MaxPacketSize)
	}

	buf := make([]byte, total)
	buf[0] = p.Header.Version
	buf[1] = p.Header.Flags
	binary.BigEndian.PutUint16(buf[2:4], HeaderSize)
	binary.BigEndian.PutUint32(buf[4:8], p.Header.TunnelId)
	binary.BigEndian.PutUint32(buf[8:12], p.Header.Sequence)
	binary.BigEndian.PutUint32(buf[12:16], p.Header.Timestamp)
	binary.BigEndian.PutUint32(buf[16:20], uint32(tlvLen))

	off := HeaderSize
	for _, t := range p.TLVs {
		copy(buf[off:], t.Pack())
		off += TLVHeaderSize + len(t.Value)
	}
	return buf, nil
}

// Decode parses a packet from wire bytes. In non-strict mode (the default)
// unknown TLV types are skipped and counted rather than rejected; malformed
// lengths are always rejected regardless of strict mode.
func Decode(data []byte, strict bool) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, newErr(KindMalformedHeader, "buffer shorter than fixed header: %d bytes", len(data))
	}
	if len(data) > MaxPacketSize {
		return Packet{}, newErr(KindPacketTooLarge, "packet is %d bytes, max %d", len(data), MaxPacketSize)
	}

	h := Header{
		Version:      data[0],
		Flags:        data[1],
		HeaderLength: binary.BigEndian.Uint16(data[2:4]),
		TunnelId:     binary.BigEndian.Uint32(data[4:8]),
		Sequence:     binary.BigEndian.Uint32(data[8:12]),
		Timestamp:    binary.BigEndian.Uint32(data[12:16]),
		TLVLength:    binary.BigEndian.Uint32(data[16:20]),
	}

	if h.Version != Version {
		return Packet{}, newErr(KindUnsupportedVersion, "unsupported version %d", h.Version)
	}
	if h.HeaderLength != HeaderSize {
		return Packet{}, newErr(KindMalformedHeader, "header_length must be %d, got %d", HeaderSize, h.HeaderLength)
	}
	if h.Flags&flagReservedMask != 0 {
		return Packet{}, newErr(KindReservedFlagSet, "reserved flag bits set: 0x%02x", h.Flags)
	}

	total := HeaderSize + int(h.TLVLength)
	if total < 0 || total > len(data) {
		return Packet{}, newErr(KindMalformedHeader, "tlv_length %d points past end of %d-byte buffer", h.TLVLength, len(data))
	}

	region := data[HeaderSize:total]
	tlvs, skipped, err := decodeTLVRegion(region, strict)
	if err != nil {
		return Packet{}, err
	}

	return Packet{Header: h, TLVs: tlvs, SkippedUnknown: skipped}, nil
}

func decodeTLVRegion(region []byte, strict bool) ([]TLV, int, error) {
	var out []TLV
	skipped := 0
	off := 0
	for off < len(region) {
		if len(region)-off < TLVHeaderSize {
			return nil, 0, newErr(KindTruncatedTlv, "%d trailing bytes too short for a TLV header", len(region)-off)
		}
		typ := binary.BigEndian.Uint16(region[off : off+2])
		length := binary.BigEndian.Uint16(region[off+2 : off+4])
		valStart := off + TLVHeaderSize
		valEnd := valStart + int(length)
		if valEnd > len(region) {
			return nil, 0, newErr(KindTruncatedTlv, "tlv type 0x%04x declares length %d past end of region", typ, length)
		}

		if !IsKnownType(typ) {
			if strict {
				return nil, 0, newErr(KindTruncatedTlv, "unknown tlv type 0x%04x in strict mode", typ)
			}
			skipped++
			off = valEnd
			continue
		}

		value := make([]byte, length)
		copy(value, region[valStart:valEnd])
		out = append(out, TLV{Type: typ, Length: length, Value: value})
		off = valEnd
	}
	return out, skipped, nil
}
