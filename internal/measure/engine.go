package measure

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"ddarpd/internal/model"
	"ddarpd/internal/wire"
)

// Liveness transition thresholds (spec.md §4.2).
const (
	SuspectAfter = 10 * time.Second
	DeadAfter    = 30 * time.Second
	StaleAfter   = 120 * time.Second
)

// AuthError is the measurement engine's auth error taxonomy (spec.md §7).
type AuthError struct {
	Kind string
	Peer model.NodeId
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s: peer %s", e.Kind, e.Peer) }

const (
	KindHmacMismatch = "HmacMismatch"
	KindUnknownPeer  = "UnknownPeer"
)

// ProbePayload is the TLV value carried inside a probe packet's single
// T3_TERNARY TLV, before the trailing HMAC tag (spec.md §4.2).
type ProbePayload struct {
	Src             model.NodeId `json:"src"`
	Dst             model.NodeId `json:"dst"`
	Seq             uint32       `json:"seq"`
	SendTsMonotonic int64        `json:"send_ts_monotonic"`
	SendTsWall      int64        `json:"send_ts_wall"`
}

const tagSize = sha256.Size

// signPacket encodes pkt and appends an HMAC-SHA256 tag over the encoded
// bytes, keyed by secret. Keeping the tag as a trailer on the whole encoded
// packet, rather than folded into the codec, keeps the codec itself free of
// any auth concern; shared by every signed message type (probes, topology
// update announcements).
func signPacket(pkt wire.Packet, secret []byte) ([]byte, error) {
	unsigned, err := wire.Encode(pkt)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(unsigned)
	return append(unsigned, mac.Sum(nil)...), nil
}

// verifyTag checks the trailing HMAC tag against secret and returns the
// encoded packet bytes with the tag stripped off.
func verifyTag(raw []byte, secret []byte) ([]byte, error) {
	if len(raw) < tagSize {
		return nil, &AuthError{Kind: KindHmacMismatch}
	}
	body := raw[:len(raw)-tagSize]
	gotTag := raw[len(raw)-tagSize:]

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(gotTag, mac.Sum(nil)) {
		return nil, &AuthError{Kind: KindHmacMismatch}
	}
	return body, nil
}

// BuildProbe encodes a signed probe packet: header + one T3_TERNARY TLV
// carrying the JSON payload, followed (as a trailer) by its HMAC-SHA256 tag.
func BuildProbe(payload ProbePayload, seq uint32, secret []byte) ([]byte, error) {
	body, err := wire.EncodeJSON(payload)
	if err != nil {
		return nil, err
	}
	pkt := wire.Packet{
		Header: wire.Header{
			Version:   wire.Version,
			Flags:     wire.FlagRequest,
			Sequence:  seq,
			Timestamp: uint32(time.Now().Unix()),
		},
		TLVs: []wire.TLV{{Type: wire.TypeT3Ternary, Value: body}},
	}
	return signPacket(pkt, secret)
}

// VerifyAndExtract checks the trailing HMAC tag against secret, then decodes
// the wire packet and its probe payload from the remaining bytes.
func VerifyAndExtract(raw []byte, secret []byte) (ProbePayload, error) {
	body, err := verifyTag(raw, secret)
	if err != nil {
		return ProbePayload{}, err
	}

	pkt, err := wire.Decode(body, false)
	if err != nil {
		return ProbePayload{}, err
	}
	if len(pkt.TLVs) == 0 {
		return ProbePayload{}, &AuthError{Kind: KindHmacMismatch}
	}

	var payload ProbePayload
	if err := wire.DecodeJSON(pkt.TLVs[0].Value, &payload); err != nil {
		return ProbePayload{}, err
	}
	return payload, nil
}

type pairKey struct {
	src, dst model.NodeId
}

// Engine owns the per-pair sliding windows and derives liveness. It does not
// own sockets: callers hand it decoded, authenticated samples and read back
// metrics/liveness snapshots. This mirrors the T_recv/T_route split in
// spec.md §5 — socket I/O lives in the caller, the engine is pure state.
type Engine struct {
	mu       sync.RWMutex
	windows  map[pairKey]*Window
	lastSeen map[model.NodeId]time.Time

	probeSent     map[model.NodeId]uint64
	probeRecv     map[model.NodeId]uint64
	probeAuthFail map[model.NodeId]uint64
}

// NewEngine returns an empty measurement engine.
func NewEngine() *Engine {
	return &Engine{
		windows:       make(map[pairKey]*Window),
		lastSeen:      make(map[model.NodeId]time.Time),
		probeSent:     make(map[model.NodeId]uint64),
		probeRecv:     make(map[model.NodeId]uint64),
		probeAuthFail: make(map[model.NodeId]uint64),
	}
}

// RecordSent increments the probe_sent counter for peer (T_send side).
func (e *Engine) RecordSent(peer model.NodeId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.probeSent[peer]++
}

// RecordAuthFail increments probe_auth_fail for peer (bad HMAC or unknown peer).
func (e *Engine) RecordAuthFail(peer model.NodeId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.probeAuthFail[peer]++
}

// RecordSample inserts an authenticated sample into its pair's window, marks
// the source peer as recently heard, and returns the freshly derived
// EdgeMetrics for the (src, dst) edge.
func (e *Engine) RecordSample(s model.ProbeSample) model.EdgeMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := pairKey{src: s.SourceId, dst: s.DestId}
	w, ok := e.windows[key]
	if !ok {
		w = NewWindow()
		e.windows[key] = w
	}
	metrics := w.Insert(s)

	e.lastSeen[s.SourceId] = s.RecvTs
	e.probeRecv[s.SourceId]++
	return metrics
}

// Metrics returns the current EdgeMetrics for (src, dst) and whether the
// pair has been seen at all.
func (e *Engine) Metrics(src, dst model.NodeId) (model.EdgeMetrics, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.windows[pairKey{src: src, dst: dst}]
	if !ok {
		return model.EdgeMetrics{}, false
	}
	return w.metrics(time.Now()), true
}

// MetricsMatrix returns a snapshot of every known (src,dst) edge's metrics,
// keyed by src then dst, for the /metrics/owl admin endpoint.
func (e *Engine) MetricsMatrix() map[model.NodeId]map[model.NodeId]model.EdgeMetrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[model.NodeId]map[model.NodeId]model.EdgeMetrics, len(e.windows))
	for k, w := range e.windows {
		row, ok := out[k.src]
		if !ok {
			row = make(map[model.NodeId]model.EdgeMetrics)
			out[k.src] = row
		}
		row[k.dst] = w.metrics(time.Now())
	}
	return out
}

// Liveness derives a peer's liveness from how long ago it was last heard
// from (spec.md §4.2's 10s/30s thresholds). There is no further threshold:
// a dead peer stays in the registry until an admin removes it.
func (e *Engine) Liveness(peer model.NodeId, now time.Time) model.Liveness {
	e.mu.RLock()
	last, ok := e.lastSeen[peer]
	e.mu.RUnlock()
	if !ok {
		return model.LivenessUnknown
	}
	age := now.Sub(last)
	switch {
	case age < SuspectAfter:
		return model.LivenessAlive
	case age < DeadAfter:
		return model.LivenessSuspect
	default:
		return model.LivenessDead
	}
}

// Counters returns the spec.md §6 per-peer probe counters for metrics export.
func (e *Engine) Counters() (sent, recv, authFail map[model.NodeId]uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneCounter(e.probeSent), cloneCounter(e.probeRecv), cloneCounter(e.probeAuthFail)
}

func cloneCounter(m map[model.NodeId]uint64) map[model.NodeId]uint64 {
	out := make(map[model.NodeId]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
