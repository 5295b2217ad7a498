// Package knownuuids maps the UUIDs this bridge cares about (DE1
// service/characteristics, known scale and sensor services) to
// human-readable names, for diagnostics and log output. It is a small
// hand-curated table scoped to this bridge's own devices, not a
// general Bluetooth SIG database.
package knownuuids

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// table preserves insertion order so a diagnostics listing renders
// DE1 entries before scale entries before sensor entries, matching
// how an operator would expect to scan the output.
var table = orderedmap.New[string, string]()

func register(uuid, name string) {
	table.Set(NormalizeUUID(uuid), name)
}

func init() {
	register("0000a000-0000-1000-8000-00805f9b34fb", "DE1 Service")
	register("0000a001-0000-1000-8000-00805f9b34fb", "DE1 State Info")
	register("0000a002-0000-1000-8000-00805f9b34fb", "DE1 Requested State")
	register("0000a005-0000-1000-8000-00805f9b34fb", "DE1 Read From MMR")
	register("0000a006-0000-1000-8000-00805f9b34fb", "DE1 Write To MMR")
	register("0000a007-0000-1000-8000-00805f9b34fb", "DE1 Version")
	register("0000a009-0000-1000-8000-00805f9b34fb", "DE1 Frame Write")
	register("0000a00a-0000-1000-8000-00805f9b34fb", "DE1 Header Write")
	register("0000a00b-0000-1000-8000-00805f9b34fb", "DE1 Shot Settings")
	register("0000a00d-0000-1000-8000-00805f9b34fb", "DE1 Shot Sample")
	register("0000a00e-0000-1000-8000-00805f9b34fb", "DE1 Temperatures")
	register("0000a00f-0000-1000-8000-00805f9b34fb", "DE1 Water Levels")

	register("0000fff0-0000-1000-8000-00805f9b34fb", "Decent Scale Service")
	register("0000fff2-0000-1000-8000-00805f9b34fb", "Decent Scale Command")
	register("0000fff4-0000-1000-8000-00805f9b34fb", "Decent Scale Weight")

	register("00001820-0000-1000-8000-00805f9b34fb", "Acaia Service")
	register("00002a80-0000-1000-8000-00805f9b34fb", "Acaia Notify")

	register("0000181d-0000-1000-8000-00805f9b34fb", "Weight Scale Service")
	register("00002a9d-0000-1000-8000-00805f9b34fb", "Weight Measurement")
}

// NormalizeUUID lowercases uuid and strips dashes/braces/0x prefix so
// lookups are shape-agnostic, mirroring how advertisement payloads and
// GATT discovery results disagree on UUID formatting.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(uuid)
	u = strings.TrimPrefix(u, "0x")
	u = strings.NewReplacer("-", "", "{", "", "}", "").Replace(u)
	return u
}

// Lookup returns the registered name for uuid, or "" if unknown.
func Lookup(uuid string) string {
	name, _ := table.Get(NormalizeUUID(uuid))
	return name
}

// All returns every registered (uuid, name) pair in registration order.
func All() []Entry {
	entries := make([]Entry, 0, table.Len())
	for pair := table.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, Entry{UUID: pair.Key, Name: pair.Value})
	}
	return entries
}

// Entry is one (uuid, name) row returned by All.
type Entry struct {
	UUID string
	Name string
}
