package models

import "fmt"

// EventKind enumerates the semantic log message categories. The zero value is KindIrrelevant.
type EventKind int

const (
	// KindIrrelevant marks a record that matched no classification rule. It is never stored.
	KindIrrelevant EventKind = iota

	ClientReceivedUniqueID
	ClientReceivedGameState
	ClientUpdatePlayerLock
	ClientSetCharacterState
	ClientPhysicsTick
	ClientInputHistoryInsert
	ClientSentInputSnapshot
	ClientReappliedInputs
	ClientFrameTiming

	ServerInitialized
	ServerReceivedInputSnapshot
	ServerUpdatedPlayerState
	ServerPhysicsTick
	ServerSentGameUpdate

	kindSentinel
)

type kindInfo struct {
	process Process
	name    string
	label   string
}

var kindTable = [...]kindInfo{
	KindIrrelevant:              {0, "irrelevant", "Irrelevant"},
	ClientReceivedUniqueID:      {ProcessClient, "client.received_unique_id", "Client Unique ID"},
	ClientReceivedGameState:     {ProcessClient, "client.received_game_state", "Client Game State Received"},
	ClientUpdatePlayerLock:      {ProcessClient, "client.update_player_lock", "Client Player Update Lock"},
	ClientSetCharacterState:     {ProcessClient, "client.set_character_state", "Client Character State Set"},
	ClientPhysicsTick:           {ProcessClient, "client.physics_tick", "Client Physics Tick"},
	ClientInputHistoryInsert:    {ProcessClient, "client.input_history_insert", "Client Input History Insert"},
	ClientSentInputSnapshot:     {ProcessClient, "client.sent_input_snapshot", "Client Input Snapshot Sent"},
	ClientReappliedInputs:       {ProcessClient, "client.reapplied_inputs", "Client Inputs Reapplied"},
	ClientFrameTiming:           {ProcessClient, "client.frame_timing", "Client Frame Timing"},
	ServerInitialized:           {ProcessServer, "server.initialized", "Server Initialized"},
	ServerReceivedInputSnapshot: {ProcessServer, "server.received_input_snapshot", "Server Input Snapshot Received"},
	ServerUpdatedPlayerState:    {ProcessServer, "server.updated_player_state", "Server Player State Updated"},
	ServerPhysicsTick:           {ProcessServer, "server.physics_tick", "Server Physics Tick"},
	ServerSentGameUpdate:        {ProcessServer, "server.sent_game_update", "Server Game Update Sent"},
}

// AllKinds returns every storable kind in declaration order.
func AllKinds() []EventKind {
	kinds := make([]EventKind, 0, int(kindSentinel)-1)
	for k := KindIrrelevant + 1; k < kindSentinel; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Valid reports whether k is a storable kind.
func (k EventKind) Valid() bool {
	return k > KindIrrelevant && k < kindSentinel
}

// Process returns the process that emits this kind.
func (k EventKind) Process() Process {
	if k < 0 || k >= kindSentinel {
		return 0
	}
	return kindTable[k].process
}

// String returns the stable dotted name, e.g. "client.physics_tick".
func (k EventKind) String() string {
	if k < 0 || k >= kindSentinel {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindTable[k].name
}

// Label returns the legend text for the kind's series.
func (k EventKind) Label() string {
	if k < 0 || k >= kindSentinel {
		return k.String()
	}
	return kindTable[k].label
}

// ParseEventKind resolves a dotted kind name back to its constant.
func ParseEventKind(name string) (EventKind, error) {
	for k := KindIrrelevant + 1; k < kindSentinel; k++ {
		if kindTable[k].name == name {
			return k, nil
		}
	}
	return KindIrrelevant, fmt.Errorf("unknown event kind %q", name)
}
