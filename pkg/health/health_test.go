package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

func TestClassifier_NeedsErrorQuery(t *testing.T) {
	c := NewClassifier(0.8)
	nameplate := model.Float(100)

	tests := []struct {
		name      string
		hashrate  float64
		nameplate *float64
		want      bool
	}{
		{"zero always queries", 0, nameplate, true},
		{"zero without nameplate", 0, nil, true},
		{"95 percent of nameplate", 95, nameplate, false},
		{"70 percent of nameplate", 70, nameplate, true},
		{"exactly at threshold", 80, nameplate, false},
		{"no nameplate, nonzero", 10, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.NeedsErrorQuery(tt.hashrate, tt.nameplate))
		})
	}
}

func TestNewClassifier_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewClassifier(0).Threshold)
	assert.Equal(t, DefaultThreshold, NewClassifier(1.5).Threshold)
	assert.Equal(t, 0.9, NewClassifier(0.9).Threshold)
}

func TestClassifier_Status(t *testing.T) {
	c := NewClassifier(0.8)

	tests := []struct {
		name string
		obs  model.Observation
		want model.HealthStatus
	}{
		{"no hashrate", model.Observation{}, model.StatusUnknown},
		{"zero hashrate", model.Observation{Hashrate: model.Float(0)}, model.StatusCritical},
		{"sleeping", model.Observation{Hashrate: model.Float(0), Sleep: true}, model.StatusOK},
		{"degraded", model.Observation{Hashrate: model.Float(50), Nameplate: model.Float(100)}, model.StatusWarning},
		{"errors", model.Observation{Hashrate: model.Float(99), Errors: []string{NoPoolSet}}, model.StatusWarning},
		{"healthy", model.Observation{Hashrate: model.Float(99), Nameplate: model.Float(100)}, model.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Status(&tt.obs))
		})
	}
}

func TestErrorTable_Translate(t *testing.T) {
	table := DefaultErrorTable()

	assert.Equal(t, "Fan failure.", table.Translate("antminer", "ERROR_FAN_LOST"))
	assert.Equal(t, "Fan failure.", table.Translate("Antminer", "ERROR_FAN_LOST"))
	assert.Equal(t, "Temperature error.", table.Translate("whatsminer", "352"))
	assert.Equal(t, UnknownError, table.Translate("whatsminer", "ERROR_FAN_LOST"), "vendor must match")
	assert.Equal(t, UnknownError, table.Translate("avalon", "E42"))

	assert.Equal(t, []string{"Fan speed error.", UnknownError},
		table.TranslateAll("whatsminer", []string{"110", "x"}))
}

func TestErrorTable_FirstMatchWins(t *testing.T) {
	table, err := NewErrorTable([]Pattern{
		{Vendor: "antminer", Pattern: "FAN", Message: "first"},
		{Vendor: "antminer", Pattern: "FAN_LOST", Message: "second"},
		{Vendor: AnyVendor, Pattern: "^.*$", Message: UnknownError},
	})
	require.NoError(t, err)
	assert.Equal(t, "first", table.Translate("antminer", "ERROR_FAN_LOST"))
	assert.Len(t, table.Patterns(), 3)
}

func TestNewErrorTable_RequiresCatchAll(t *testing.T) {
	_, err := NewErrorTable([]Pattern{{Vendor: "antminer", Pattern: ".*", Message: "vendor only"}})
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	_, err = NewErrorTable([]Pattern{{Vendor: AnyVendor, Pattern: "^E", Message: "partial"}})
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	_, err = NewErrorTable([]Pattern{{Vendor: AnyVendor, Pattern: "(", Message: "bad"}})
	assert.Error(t, err)

	table, err := NewErrorTable([]Pattern{{Pattern: ".*", Message: "empty vendor is wildcard"}})
	require.NoError(t, err)
	assert.Equal(t, "empty vendor is wildcard", table.Translate("any", "code"))
}
