// Package classifier turns a BLE advertisement into a device kind the
// bridge knows how to drive: a DE1, a scale of a known vendor, a
// known sensor, or an unrecognized peripheral.
package classifier

import "strings"

// Kind identifies the broad category a device was classified into.
type Kind int

const (
	KindUnknown Kind = iota
	KindDE1
	KindScale
	KindSensor
)

func (k Kind) String() string {
	switch k {
	case KindDE1:
		return "DE1"
	case KindScale:
		return "Scale"
	case KindSensor:
		return "Sensor"
	default:
		return "Unknown"
	}
}

// Result is the outcome of classifying an advertisement. Vendor is
// populated for Scale and Sensor kinds ("Decent", "Acaia", "BookooMonitor", ...).
type Result struct {
	Kind   Kind
	Vendor string
}

// Advertisement is the subset of a BLE advertisement the classifier
// needs: the broadcast name and any advertised service UUIDs.
type Advertisement struct {
	Name         string
	ServiceUUIDs []string
}

// de1ServiceUUID is the DE1 GATT service UUID. Declared locally
// (rather than importing de1proto) to keep the classifier free of any
// protocol-decode dependency.
const de1ServiceUUID = "0000a000-0000-1000-8000-00805f9b34fb"

type scalePattern struct {
	prefix        string
	vendor        string
	caseSensitive bool
}

// scalePatterns is evaluated in order; the first match wins. Order
// matches the vendor table the bridge's original firmware ships.
var scalePatterns = []scalePattern{
	{prefix: "Decent Scale", vendor: "Decent", caseSensitive: true},
	{prefix: "acaia", vendor: "Acaia"},
	{prefix: "proch", vendor: "Acaia"},
	{prefix: "pyxis", vendor: "Acaia Pyxis"},
	{prefix: "felicita", vendor: "Felicita"},
	{prefix: "skale", vendor: "Skale"},
	{prefix: "eureka", vendor: "Eureka"},
	{prefix: "difluid", vendor: "DiFluid"},
	{prefix: "hiroia", vendor: "Hiroia"},
	{prefix: "jimmy", vendor: "Hiroia"},
	{prefix: "varia", vendor: "Varia"},
	{prefix: "smartchef", vendor: "SmartChef"},
}

// Classify applies the priority rules: scale name patterns first (a
// scale must never be mistaken for a DE1), then the Bookoo sensor
// pattern, then DE1 name/UUID matches, else Unknown.
func Classify(ad Advertisement) Result {
	if vendor, ok := matchScale(ad.Name); ok {
		return Result{Kind: KindScale, Vendor: vendor}
	}

	lower := strings.ToLower(ad.Name)
	if strings.HasPrefix(lower, "bookoo") && (strings.Contains(lower, "em") || strings.Contains(lower, "monitor")) {
		return Result{Kind: KindSensor, Vendor: "BookooMonitor"}
	}

	if strings.HasPrefix(lower, "de1") || strings.Contains(lower, "decent") {
		return Result{Kind: KindDE1}
	}
	for _, uuid := range ad.ServiceUUIDs {
		if strings.EqualFold(uuid, de1ServiceUUID) {
			return Result{Kind: KindDE1}
		}
	}

	return Result{Kind: KindUnknown}
}

func matchScale(name string) (string, bool) {
	lower := strings.ToLower(name)
	// bookoo is a scale unless its name looks like the standalone
	// puck/EM sensor variant, which rule 2 claims instead.
	if strings.HasPrefix(lower, "bookoo") && !strings.Contains(lower, "em") && !strings.Contains(lower, "monitor") {
		return "Bookoo", true
	}
	for _, p := range scalePatterns {
		if p.caseSensitive {
			if strings.HasPrefix(name, p.prefix) {
				return p.vendor, true
			}
			continue
		}
		if strings.HasPrefix(lower, p.prefix) {
			return p.vendor, true
		}
	}
	return "", false
}
