package sshdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/fleetscan/pkg/model"
)

func TestDefaultProfiles(t *testing.T) {
	set, err := DefaultProfiles()
	require.NoError(t, err)

	tests := []struct {
		banner string
		vendor string
	}{
		{"SSH-2.0-dropbear_2019.78", "antminer"},
		{"SSH-2.0-btminer_1.0", "whatsminer"},
		{"SSH-2.0-OpenSSH_8.4", "generic"},
	}
	for _, tt := range tests {
		p := set.Match(tt.banner)
		require.NotNil(t, p, tt.banner)
		assert.Equal(t, tt.vendor, p.Vendor, tt.banner)
	}

	antminer := set.Match("SSH-2.0-dropbear")
	for _, name := range []string{ReadModel, ReadMAC, ReadHashrate, ReadTemperature, ReadFans,
		ReadUptime, ReadPools, ReadSleep, ReadLocate, ReadPower, ReadNameplate, ReadProfile, ReadErrors, ReadLogs} {
		assert.Contains(t, antminer.Reads, name)
	}
	for _, name := range []string{WriteSetPools, WriteSetProfile, WriteSetSleep, WriteSetLocate, WriteReboot} {
		assert.Contains(t, antminer.Writes, name)
	}
}

func TestParseProfiles_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "profiles: []"},
		{"bad yaml", "profiles: [:"},
		{"missing vendor", "profiles:\n  - banner: x\n"},
		{"bad banner", "profiles:\n  - vendor: a\n    banner: '('\n"},
		{"bad jq", "profiles:\n  - vendor: a\n    banner: x\n    reads:\n      model: {command: c, jq: '.['}\n"},
		{"no command", "profiles:\n  - vendor: a\n    banner: x\n    reads:\n      model: {jq: '.'}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func antminerQuery(t *testing.T, name string) *Query {
	t.Helper()
	set, err := DefaultProfiles()
	require.NoError(t, err)
	q := set.Match("SSH-2.0-dropbear").Reads[name]
	require.NotNil(t, q)
	return q
}

func TestQuery_Extract(t *testing.T) {
	summary := `{"STATUS":[{"STATUS":"S"}],"SUMMARY":[{"Elapsed":3600,"GHS 5s":"95000.5"}]}` + "\x00"
	stats := `{"STATS":[{"Type":"Antminer S19"},{"fan1":3600,"fan2":0,"fan3":3660,"temp2_1":61,"temp2_2":67,"total_rateideal":100000,"chain_power":3250}]}`
	pools := `{"POOLS":[{"URL":"stratum+tcp://pool:3333","User":"acct.24.s19.3x4"},{"URL":"","User":""}]}`

	v, err := antminerQuery(t, ReadHashrate).Extract(summary)
	require.NoError(t, err)
	f, err := asFloat(v)
	require.NoError(t, err)
	assert.InDelta(t, 95.0005, f, 1e-9)

	v, err = antminerQuery(t, ReadUptime).Extract(summary)
	require.NoError(t, err)
	f, _ = asFloat(v)
	assert.Equal(t, 3600.0, f)

	v, err = antminerQuery(t, ReadFans).Extract(stats)
	require.NoError(t, err)
	fans, err := asInts(v)
	require.NoError(t, err)
	assert.Equal(t, []int{3600, 3660}, fans)

	v, err = antminerQuery(t, ReadTemperature).Extract(stats)
	require.NoError(t, err)
	f, _ = asFloat(v)
	assert.Equal(t, 67.0, f)

	v, err = antminerQuery(t, ReadNameplate).Extract(stats)
	require.NoError(t, err)
	f, _ = asFloat(v)
	assert.Equal(t, 100.0, f)

	v, err = antminerQuery(t, ReadPools).Extract(pools)
	require.NoError(t, err)
	got, err := asPools(v)
	require.NoError(t, err)
	assert.Equal(t, []model.Pool{
		{URL: "stratum+tcp://pool:3333", Username: "acct.24.s19.3x4"},
		{},
	}, got)

	v, err = antminerQuery(t, ReadMAC).Extract("aa:bb:cc:dd:ee:ff\n")
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", v)

	_, err = antminerQuery(t, ReadHashrate).Extract("not json")
	assert.Error(t, err)

	_, err = antminerQuery(t, ReadHashrate).Extract(`{"SUMMARY":[{}]}`)
	assert.Error(t, err, "null hashrate must not convert")
}

func TestRenderWrite(t *testing.T) {
	cmd, err := RenderWrite("echo '{pools_json}'", []model.Pool{{URL: "u", Username: "it's", Password: "x"}}, "", false)
	require.NoError(t, err)
	assert.Equal(t, `echo '[{"url":"u","username":"it'\''s","password":"x"}]'`, cmd)

	cmd, err = RenderWrite("if {enabled}; then on; fi; echo {enabled_num} {profile}", nil, "eco", true)
	require.NoError(t, err)
	assert.Equal(t, "if true; then on; fi; echo 1 eco", cmd)
}

func TestConversions(t *testing.T) {
	b, err := asBool("1\n")
	require.NoError(t, err)
	assert.True(t, b)

	b, err = asBool(0.0)
	require.NoError(t, err)
	assert.False(t, b)

	_, err = asBool("maybe")
	assert.Error(t, err)

	codes, err := asStrings("ERROR_FAN_LOST\n\nERROR_TEMP_TOO_HIGH\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"ERROR_FAN_LOST", "ERROR_TEMP_TOO_HIGH"}, codes)

	codes, err = asStrings([]interface{}{"110", 203.0})
	require.NoError(t, err)
	assert.Equal(t, []string{"110", "203"}, codes)

	_, err = asPools("x")
	assert.Error(t, err)
}
