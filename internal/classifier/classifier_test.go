package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyScenario(t *testing.T) {
	cases := []struct {
		name   string
		want   Kind
		vendor string
	}{
		{"Decent Scale 123", KindScale, "Decent"},
		{"DE1Pro AB", KindDE1, ""},
		{"BOOKOO_EM_01", KindSensor, "BookooMonitor"},
	}
	for _, c := range cases {
		got := Classify(Advertisement{Name: c.name})
		assert.Equalf(t, c.want, got.Kind, "name=%s", c.name)
		assert.Equalf(t, c.vendor, got.Vendor, "name=%s", c.name)
	}
}

func TestClassifyDecentScaleNeverDE1(t *testing.T) {
	names := []string{"Decent Scale", "Decent Scale 123", "Decent Scale AB"}
	for _, name := range names {
		got := Classify(Advertisement{Name: name})
		assert.NotEqual(t, KindDE1, got.Kind, "name=%s", name)
	}
}

func TestClassifyBookooWithoutSensorSuffixIsScale(t *testing.T) {
	got := Classify(Advertisement{Name: "Bookoo Mini"})
	assert.Equal(t, KindScale, got.Kind)
	assert.Equal(t, "Bookoo", got.Vendor)
}

func TestClassifyDE1ByServiceUUID(t *testing.T) {
	got := Classify(Advertisement{Name: "Unnamed", ServiceUUIDs: []string{de1ServiceUUID}})
	assert.Equal(t, KindDE1, got.Kind)
}

func TestClassifyUnknown(t *testing.T) {
	got := Classify(Advertisement{Name: "Random Gadget"})
	assert.Equal(t, KindUnknown, got.Kind)
}

func TestClassifyCaseInsensitiveVendorPatterns(t *testing.T) {
	got := Classify(Advertisement{Name: "ACAIA Lunar"})
	assert.Equal(t, KindScale, got.Kind)
	assert.Equal(t, "Acaia", got.Vendor)
}

func TestKindStringNotEmpty(t *testing.T) {
	for _, k := range []Kind{KindUnknown, KindDE1, KindScale, KindSensor} {
		assert.False(t, strings.TrimSpace(k.String()) == "")
	}
}
