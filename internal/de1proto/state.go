package de1proto

import (
	"fmt"
	"strings"
)

// State is the DE1's top-level machine state, as reported in byte 0
// of STATE_INFO.
type State uint8

// State codes, per the firmware's canonical mapping.
const (
	StateSleep           State = 0x00
	StateGoingToSleep    State = 0x01
	StateIdle            State = 0x02
	StateBusy            State = 0x03
	StateEspresso        State = 0x04
	StateSteam           State = 0x05
	StateHotWater        State = 0x06
	StateShortCal        State = 0x07
	StateSelfTest        State = 0x08
	StateLongCal         State = 0x09
	StateDescale         State = 0x0A
	StateFatalError      State = 0x0B
	StateInit            State = 0x0C
	StateNoRequest       State = 0x0D
	StateSkipToNext      State = 0x0E
	StateHotWaterRinse   State = 0x0F
	StateSteamRinse      State = 0x10
	StateRefill          State = 0x11
	StateClean           State = 0x12
	StateInBootloader    State = 0x13
	StateAirPurge        State = 0x14
	StateSchedIdle       State = 0x15
	StateReserved        State = 0x16
	StateNoChange        State = 0xFF
)

var stateNames = map[State]string{
	StateSleep:         "sleep",
	StateGoingToSleep:  "goingToSleep",
	StateIdle:          "idle",
	StateBusy:          "busy",
	StateEspresso:      "espresso",
	StateSteam:         "steam",
	StateHotWater:      "hotWater",
	StateShortCal:      "shortCal",
	StateSelfTest:      "selfTest",
	StateLongCal:       "longCal",
	StateDescale:       "descale",
	StateFatalError:    "fatalError",
	StateInit:          "init",
	StateNoRequest:     "noRequest",
	StateSkipToNext:    "skipToNext",
	StateHotWaterRinse: "flush",
	StateSteamRinse:    "steamRinse",
	StateRefill:        "refill",
	StateClean:         "clean",
	StateInBootloader:  "inBootloader",
	StateAirPurge:      "airPurge",
	StateSchedIdle:     "schedIdle",
	StateReserved:      "reserved",
	StateNoChange:      "noChange",
}

// String renders the state as its canonical name, or a numeric
// fallback ("unknown(<n>)") for unmapped values.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// userAddressableStates is the subset of states a client may request
// by name over the HTTP API, keyed lower-case since ParseRequestableState
// compares case-insensitively.
var userAddressableStates = map[string]State{
	"sleep":    StateSleep,
	"idle":     StateIdle,
	"espresso": StateEspresso,
	"steam":    StateSteam,
	"hotwater": StateHotWater,
	"flush":    StateHotWaterRinse,
	"descale":  StateDescale,
	"clean":    StateClean,
}

// ParseRequestableState looks up a state by its lower-cased string
// alias. Reports ok=false for names outside the user-addressable set.
func ParseRequestableState(name string) (State, bool) {
	s, ok := userAddressableStates[strings.ToLower(name)]
	return s, ok
}

// SubState is the DE1's secondary state, reported in byte 1 of
// STATE_INFO. Unknown values pass through as their raw integer.
type SubState uint8

const (
	SubStateReady          SubState = 0x00
	SubStateHeating        SubState = 0x01
	SubStateFinalHeating    SubState = 0x02
	SubStateStabilising    SubState = 0x03
	SubStatePreInfusing    SubState = 0x04
	SubStatePouring        SubState = 0x05
	SubStateEnding         SubState = 0x06
	SubStateRefill         SubState = 0x07
	SubStatePointingCancel SubState = 0x08
)

var subStateNames = map[SubState]string{
	SubStateReady:        "ready",
	SubStateHeating:      "heating",
	SubStateFinalHeating: "finalHeating",
	SubStateStabilising:  "stabilising",
	SubStatePreInfusing:  "preInfusing",
	SubStatePouring:      "pouring",
	SubStateEnding:       "ending",
	SubStateRefill:       "refill",
	SubStatePointingCancel: "pointingCancel",
}

// String renders the substate's canonical name, or "unknown(<n>)" for
// an unmapped value — the core treats unknown substates as pass-through.
func (s SubState) String() string {
	if name, ok := subStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}
