package scope

import (
	"crypto/md5"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/oqtopus-team/calibration-engine/common"
	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/pulse"
)

// GlobalScope is the reserved scope id of device-wide parameters. It is never
// produced by hashing.
const GlobalScope = "global"

const idHexLen = 6

// Info is the reverse mapping of a scope id.
type Info struct {
	Gate   string
	Qubits []int
}

func (i Info) content(ident int) string {
	return fmt.Sprintf("%s.%s:%d", i.Gate, common.JoinInts(i.Qubits, "_"), ident)
}

// Resolver assigns short content-addressed ids to (gate, qubits) contexts.
// The same context always resolves to the same id; distinct contexts whose
// hashes collide are separated by an incrementing disambiguator.
type Resolver struct {
	mu       sync.Mutex
	byID     map[string]Info
	byGate   map[string]string // "gate.q0_q1" -> id
	channels core.ChannelSetting
}

func NewResolver(channels core.ChannelSetting) *Resolver {
	return &Resolver{
		byID:     make(map[string]Info),
		byGate:   make(map[string]string),
		channels: channels,
	}
}

// Resolve returns the scope id of a gate on a qubit tuple, registering it on
// first use. Qubit order is significant.
func (r *Resolver) Resolve(gate string, qubits []int) (string, error) {
	if gate == "" {
		return GlobalScope, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	info := Info{Gate: gate, Qubits: append([]int(nil), qubits...)}
	key := info.content(0)
	if id, ok := r.byGate[key]; ok {
		return id, nil
	}

	for ident := 0; ; ident++ {
		sum := md5.Sum([]byte(info.content(ident)))
		id := fmt.Sprintf("%x", sum)[:idHexLen]
		if id == GlobalScope {
			continue
		}
		existing, taken := r.byID[id]
		if !taken {
			r.byID[id] = info
			r.byGate[key] = id
			if ident > 0 {
				zap.L().Debug(fmt.Sprintf("scope id collision resolved with disambiguator %d for %s", ident, key))
			}
			return id, nil
		}
		zap.L().Warn(fmt.Sprintf("scope id %s of %s collides with %s.%s",
			id, key, existing.Gate, common.JoinInts(existing.Qubits, "_")))
	}
}

// Lookup returns the context behind a scope id.
func (r *Resolver) Lookup(id string) (Info, error) {
	if id == GlobalScope {
		return Info{}, core.NewScopeError("the global scope has no gate context")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byID[id]
	if !ok {
		return Info{}, core.NewScopeError(fmt.Sprintf("scope id %s is not registered", id))
	}
	return info, nil
}

// ChannelQubits maps a channel to the qubits it addresses. Drive, measure and
// acquire channels map by index; control channels need the configured map.
func (r *Resolver) ChannelQubits(ch pulse.Channel) ([]int, error) {
	if ch.QubitMapped() {
		return []int{ch.Index}, nil
	}
	qubits, ok := r.channels.Map[ch.String()]
	if !ok {
		return nil, core.NewScopeError(fmt.Sprintf("control channel %s has no configured qubit mapping", ch))
	}
	return append([]int(nil), qubits...), nil
}
