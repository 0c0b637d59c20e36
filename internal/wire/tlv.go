package wire

import (
	"encoding/binary"
	"encoding/json"
	"unicode/utf8"
)

// TLVHeaderSize is the 2-byte type + 2-byte length prefix of every TLV.
const TLVHeaderSize = 4

// TLV is a single decoded type/length/value record. Value is always the raw
// bytes; callers use the Decode* helpers or the registry to interpret it.
type TLV struct {
	Type   uint16
	Length uint16
	Value  []byte
}

// TLV type registry (spec.md §4.1). Types 0xF000-0xFFFF are reserved for
// experiments and are never "known" by this registry, but are still
// skip-unknown eligible like any other unrecognized type.
const (
	TypeT3Ternary      uint16 = 0x0001
	TypeOwlMetrics     uint16 = 0x0002
	TypeRoutingInfo    uint16 = 0x0003
	TypeNeighborList   uint16 = 0x0010
	TypeTopologyUpdate uint16 = 0x0011
	TypeKeepalive      uint16 = 0x0030
	TypeErrorInfo      uint16 = 0x0031
	TypeCapabilities   uint16 = 0x0032
)

// ExperimentalRangeStart is the first type code reserved for experiments.
const ExperimentalRangeStart uint16 = 0xF000

// knownTypes is the skip-unknown registry: a type_code -> descriptor table,
// the Go rendering of original_source/DDARP's TLVRegistry (src/protocol/tlv.py),
// replacing its reflective encoder/decoder dispatch with a closed map.
var knownTypes = map[uint16]string{
	TypeT3Ternary:      "T3_TERNARY",
	TypeOwlMetrics:     "OWL_METRICS",
	TypeRoutingInfo:    "ROUTING_INFO",
	TypeNeighborList:   "NEIGHBOR_LIST",
	TypeTopologyUpdate: "TOPOLOGY_UPDATE",
	TypeKeepalive:      "KEEPALIVE",
	TypeErrorInfo:      "ERROR_INFO",
	TypeCapabilities:   "CAPABILITIES",
}

// IsKnownType reports whether typ is in the registry.
func IsKnownType(typ uint16) bool {
	_, ok := knownTypes[typ]
	return ok
}

// TypeName returns the registered name for typ, or "" if unknown.
func TypeName(typ uint16) string {
	return knownTypes[typ]
}

// Pack encodes the TLV to its wire bytes (4-byte header + value).
func (t TLV) Pack() []byte {
	out := make([]byte, TLVHeaderSize+len(t.Value))
	binary.BigEndian.PutUint16(out[0:2], t.Type)
	binary.BigEndian.PutUint16(out[2:4], uint16(len(t.Value)))
	copy(out[4:], t.Value)
	return out
}

// OwlMetricsValue is the decoded payload of an OWL_METRICS TLV.
type OwlMetricsValue struct {
	LatencyNs uint64
	JitterNs  uint64
	Timestamp uint32
}

// EncodeOwlMetrics packs latency_ns u64, jitter_ns u64, timestamp u32.
func EncodeOwlMetrics(v OwlMetricsValue) []byte {
	buf := make([]byte, 20)
	binary.BigEndian.PutUint64(buf[0:8], v.LatencyNs)
	binary.BigEndian.PutUint64(buf[8:16], v.JitterNs)
	binary.BigEndian.PutUint32(buf[16:20], v.Timestamp)
	return buf
}

// DecodeOwlMetrics unpacks an OWL_METRICS TLV value.
func DecodeOwlMetrics(data []byte) (OwlMetricsValue, error) {
	if len(data) != 20 {
		return OwlMetricsValue{}, newErr(KindTruncatedTlv, "owl_metrics value must be 20 bytes, got %d", len(data))
	}
	return OwlMetricsValue{
		LatencyNs: binary.BigEndian.Uint64(data[0:8]),
		JitterNs:  binary.BigEndian.Uint64(data[8:16]),
		Timestamp: binary.BigEndian.Uint32(data[16:20]),
	}, nil
}

// RoutingInfoValue is the decoded payload of a ROUTING_INFO TLV.
type RoutingInfoValue struct {
	Dest    string
	NextHop string
	Metric  uint32
}

// EncodeRoutingInfo packs dest/next_hop as length-prefixed UTF-8 plus a u32 metric.
func EncodeRoutingInfo(v RoutingInfoValue) []byte {
	dest := []byte(v.Dest)
	hop := []byte(v.NextHop)
	buf := make([]byte, 4+len(dest)+len(hop)+4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(dest)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(hop)))
	off := 4
	copy(buf[off:], dest)
	off += len(dest)
	copy(buf[off:], hop)
	off += len(hop)
	binary.BigEndian.PutUint32(buf[off:], v.Metric)
	return buf
}

// DecodeRoutingInfo unpacks a ROUTING_INFO TLV value.
func DecodeRoutingInfo(data []byte) (RoutingInfoValue, error) {
	if len(data) < 8 {
		return RoutingInfoValue{}, newErr(KindTruncatedTlv, "routing_info too short: %d bytes", len(data))
	}
	destLen := binary.BigEndian.Uint16(data[0:2])
	hopLen := binary.BigEndian.Uint16(data[2:4])
	off := 4
	need := off + int(destLen) + int(hopLen) + 4
	if len(data) < need {
		return RoutingInfoValue{}, newErr(KindTruncatedTlv, "routing_info needs %d bytes, got %d", need, len(data))
	}
	dest := string(data[off : off+int(destLen)])
	if !utf8.Valid(data[off : off+int(destLen)]) {
		return RoutingInfoValue{}, newErr(KindBadUtf8, "routing_info dest is not valid utf-8")
	}
	off += int(destLen)
	hop := string(data[off : off+int(hopLen)])
	if !utf8.Valid(data[off : off+int(hopLen)]) {
		return RoutingInfoValue{}, newErr(KindBadUtf8, "routing_info next_hop is not valid utf-8")
	}
	off += int(hopLen)
	metric := binary.BigEndian.Uint32(data[off : off+4])
	return RoutingInfoValue{Dest: dest, NextHop: hop, Metric: metric}, nil
}

// DecodeUTF8 validates and returns data as a string, or a BadUtf8 error.
func DecodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", newErr(KindBadUtf8, "value is not valid utf-8")
	}
	return string(data), nil
}

// DecodeJSON validates UTF-8 then unmarshals into v.
func DecodeJSON(data []byte, v any) error {
	s, err := DecodeUTF8(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return newErr(KindBadJson, "%v", err)
	}
	return nil
}

// EncodeJSON marshals v to compact JSON bytes.
func EncodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
