package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		kind      Kind
		available bool
		float     float64
		floatOK   bool
		text      string
	}{
		{name: "integer", input: `45`, kind: KindNumber, available: true, float: 45, floatOK: true, text: "45"},
		{name: "decimal", input: `12.5`, kind: KindNumber, available: true, float: 12.5, floatOK: true, text: "12.5"},
		{name: "null", input: `null`, kind: KindAbsent, available: false},
		{name: "enum string", input: `"P0"`, kind: KindString, available: true, text: "P0"},
		{name: "numeric string", input: `"71.0"`, kind: KindString, available: true, float: 71, floatOK: true, text: "71.0"},
		{name: "N/A placeholder", input: `"N/A"`, kind: KindString, available: false, text: "N/A"},
		{name: "Unknown placeholder", input: `"Unknown"`, kind: KindString, available: false, text: "Unknown"},
		{name: "empty string", input: `""`, kind: KindString, available: false},
		{name: "true", input: `true`, kind: KindBool, available: true, float: 1, floatOK: true, text: "true"},
		{name: "false", input: `false`, kind: KindBool, available: true, float: 0, floatOK: true, text: "false"},
		{name: "array", input: `[40, 42]`, kind: KindOther, available: true, text: "[40, 42]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))

			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.available, v.Available())
			f, ok := v.Float()
			assert.Equal(t, tt.floatOK, ok)
			assert.Equal(t, tt.float, f)
			assert.Equal(t, tt.text, v.Text())
		})
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	snap := Snapshot{
		"utilization":       Number(30),
		"performance_state": String("P2"),
		"reset_required":    Bool(false),
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, snap, back)
}

func TestValue_Truthy(t *testing.T) {
	assert.True(t, Bool(true).Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.True(t, Number(2).Truthy())
	assert.False(t, Number(0).Truthy())
	assert.True(t, String("Yes").Truthy())
	assert.False(t, String("No").Truthy())
	assert.False(t, String("N/A").Truthy())
	assert.False(t, Value{}.Truthy())
}

func TestSnapshot_Accessors(t *testing.T) {
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{
		"utilization": 88,
		"temperature": null,
		"fan_speed": "N/A",
		"name": "NVIDIA A100",
		"power_draw": "250.5"
	}`), &snap))

	assert.True(t, snap.Has(MetricUtilization))
	assert.False(t, snap.Has(MetricTemperature), "null counts as missing")
	assert.False(t, snap.Has(MetricFanSpeed), "N/A counts as missing")
	assert.False(t, snap.Has(MetricClockSM), "absent key counts as missing")

	assert.Equal(t, 88.0, snap.FloatOr(MetricUtilization, 0))
	assert.Equal(t, 0.0, snap.FloatOr(MetricTemperature, 0))
	assert.Equal(t, -1.0, snap.FloatOr(MetricFanSpeed, -1))
	assert.Equal(t, 250.5, snap.FloatOr(MetricPowerDraw, 0))

	assert.Equal(t, "NVIDIA A100", snap.TextOr(MetricName, "GPU"))
	assert.Equal(t, "GPU", snap.TextOr(MetricBrand, "GPU"))

	clone := snap.Clone()
	clone[MetricUtilization] = Number(1)
	assert.Equal(t, 88.0, snap.FloatOr(MetricUtilization, 0), "clone must not alias")
}
