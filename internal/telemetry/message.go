package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gpuhot/gpuhot/internal/errors"
)

// ModeHub marks a message aggregated from several nodes.
const ModeHub = "hub"

// Node status values reported by a hub.
const (
	NodeOnline  = "online"
	NodeOffline = "offline"
)

// Process is a GPU process as reported by the server.
type Process struct {
	PID     FlexString `json:"pid"`
	Name    string     `json:"name"`
	GPUUUID string     `json:"gpu_uuid"`
	GPUID   FlexString `json:"gpu_id"`
	// Memory is in MB.
	Memory float64 `json:"memory"`
}

// SystemInfo carries host-level metrics for the node that sent a message.
type SystemInfo struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Timestamp     string  `json:"timestamp"`
}

// ClusterStats summarizes a hub.
type ClusterStats struct {
	TotalNodes  int `json:"total_nodes"`
	OnlineNodes int `json:"online_nodes"`
	TotalGPUs   int `json:"total_gpus"`
}

// FlexString accepts a JSON string or number. Servers are inconsistent
// about pid and gpu_id types.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// EntityUpdate is one GPU's snapshot from a message.
type EntityUpdate struct {
	// Key identifies the GPU across messages: its id in flat mode,
	// "<node>-<id>" in hub mode.
	Key string
	// Node is the hub node name, or the flat server's node_name.
	Node string
	// LocalID is the GPU id as the node reports it.
	LocalID  string
	Snapshot Snapshot
}

// SystemUpdate is the system-wide part of a message.
type SystemUpdate struct {
	Node      string
	Processes []Process
	System    *SystemInfo
	Cluster   *ClusterStats
	Hub       bool
}

// InvalidEntity records a GPU whose snapshot could not be decoded.
type InvalidEntity struct {
	Key string
	Err error
}

// Message is a decoded telemetry push.
type Message struct {
	Mode         string
	Hub          bool
	Entities     []EntityUpdate
	System       *SystemUpdate
	OfflineNodes []string
	Invalid      []InvalidEntity
}

type wireMessage struct {
	Mode         string                     `json:"mode"`
	NodeName     string                     `json:"node_name"`
	GPUs         map[string]json.RawMessage `json:"gpus"`
	Processes    []Process                  `json:"processes"`
	System       *SystemInfo                `json:"system"`
	Nodes        map[string]json.RawMessage `json:"nodes"`
	ClusterStats *ClusterStats              `json:"cluster_stats"`
}

type wireNode struct {
	Status     string                     `json:"status"`
	GPUs       map[string]json.RawMessage `json:"gpus"`
	Processes  []Process                  `json:"processes"`
	System     *SystemInfo                `json:"system"`
	LastUpdate string                     `json:"last_update"`
}

// EntityKey builds the hub-mode key for a node's GPU.
func EntityKey(node, localID string) string {
	return node + "-" + localID
}

// Decode parses one message. It fails only when the message as a whole is
// unusable; a GPU with a malformed snapshot is skipped and listed in
// Message.Invalid so the rest of the message still applies.
func Decode(data []byte) (*Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrDecode,
			"Malformed telemetry message",
			"Check that the server speaks the gpuhot telemetry protocol")
	}

	if w.Mode == ModeHub {
		return decodeHub(&w)
	}
	return decodeFlat(&w)
}

func decodeFlat(w *wireMessage) (*Message, error) {
	if w.GPUs == nil {
		return nil, errors.New(errors.ErrDecode,
			"Telemetry message has no gpus object",
			"")
	}

	msg := &Message{Mode: w.Mode}
	for _, id := range sortedKeys(w.GPUs) {
		snap, err := decodeSnapshot(w.GPUs[id])
		if err != nil {
			msg.Invalid = append(msg.Invalid, InvalidEntity{Key: id, Err: err})
			continue
		}
		msg.Entities = append(msg.Entities, EntityUpdate{
			Key:      id,
			Node:     w.NodeName,
			LocalID:  id,
			Snapshot: snap,
		})
	}

	msg.System = &SystemUpdate{
		Node:      w.NodeName,
		Processes: w.Processes,
		System:    w.System,
	}
	return msg, nil
}

func decodeHub(w *wireMessage) (*Message, error) {
	if w.Nodes == nil {
		return nil, errors.New(errors.ErrDecode,
			"Hub message has no nodes object",
			"")
	}

	msg := &Message{Mode: ModeHub, Hub: true}
	var firstOnline *wireNode
	var firstOnlineName string

	for _, name := range sortedKeys(w.Nodes) {
		var node wireNode
		if err := json.Unmarshal(w.Nodes[name], &node); err != nil {
			msg.Invalid = append(msg.Invalid, InvalidEntity{
				Key: name,
				Err: fmt.Errorf("node %s: %w", name, err),
			})
			continue
		}

		if node.Status != NodeOnline {
			msg.OfflineNodes = append(msg.OfflineNodes, name)
			continue
		}

		if firstOnline == nil {
			n := node
			firstOnline = &n
			firstOnlineName = name
		}

		for _, id := range sortedKeys(node.GPUs) {
			key := EntityKey(name, id)
			snap, err := decodeSnapshot(node.GPUs[id])
			if err != nil {
				msg.Invalid = append(msg.Invalid, InvalidEntity{Key: key, Err: err})
				continue
			}
			msg.Entities = append(msg.Entities, EntityUpdate{
				Key:      key,
				Node:     name,
				LocalID:  id,
				Snapshot: snap,
			})
		}
	}

	sys := &SystemUpdate{Hub: true, Cluster: w.ClusterStats}
	if firstOnline != nil {
		sys.Node = firstOnlineName
		sys.Processes = firstOnline.Processes
		sys.System = firstOnline.System
	}
	msg.System = sys
	return msg, nil
}

func decodeSnapshot(raw json.RawMessage) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot is null")
	}
	return snap, nil
}

// sortedKeys orders GPU ids numerically when they are numbers, so "10"
// follows "9", and lexically otherwise.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return strings.Compare(keys[i], keys[j]) < 0
	})
	return keys
}
