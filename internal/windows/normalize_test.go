package windows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
)

func TestNormalize(t *testing.T) {
	record := Normalize("10.20.0.15", sampleFacts())

	assert.Equal(t, "WIN-SRV01", record.Name)
	require.NotNil(t, record.OS)
	assert.Equal(t, "windows", record.OS.Family)
	assert.Equal(t, "20348", record.OS.Build)
	assert.Equal(t, "2024-01-15T08:30:00.5+01:00", record.OS.LastBoot)

	require.NotNil(t, record.Hardware)
	assert.Equal(t, "VMware, Inc.", record.Hardware.Manufacturer)
	assert.Equal(t, uint64(8589398016), *record.Hardware.MemoryBytes)
	assert.Equal(t, 4, *record.Hardware.LogicalProcessors)
	require.Len(t, record.Hardware.Processors, 1)
	assert.Equal(t, 2993, *record.Hardware.Processors[0].MaxClockMHz)

	require.NotNil(t, record.MAC)
	assert.Equal(t, "00:50:56:a1:b2:c3", *record.MAC)
	assert.Equal(t, []string{"10.20.0.15", "fe80::1234:5678:9abc:def0"}, record.IPs)

	iface := record.Network.Interfaces[0]
	assert.Equal(t, "vmxnet3 Ethernet Adapter", iface.Name)
	assert.Equal(t, []string{"10.20.0.15"}, iface.IPv4Addresses)
	assert.Equal(t, []string{"fe80::1234:5678:9abc:def0"}, iface.IPv6Addresses)
	assert.Equal(t, []string{"10.20.0.1"}, iface.Gateways)
	assert.False(t, *iface.DHCP)
	assert.True(t, *iface.IsUp)

	require.NotNil(t, record.Metrics)
	assert.Equal(t, uint64(8388148*1024), *record.Metrics.Memory.TotalBytes)
	assert.Equal(t, uint64(4194304*1024), *record.Metrics.Memory.FreeBytes)
	require.Len(t, record.Metrics.Disks, 1)
	disk := record.Metrics.Disks[0]
	assert.Equal(t, "NTFS", disk.Filesystem)
	assert.Equal(t, "C:", disk.Mount)
	assert.Equal(t, uint64(104857600), *disk.SizeKB)
	assert.Equal(t, uint64(52428800), *disk.UsedKB)
	assert.Equal(t, "50.0%", disk.Capacity)

	assert.Nil(t, record.Applications)
}

func TestNormalizeEmptyFacts(t *testing.T) {
	record := Normalize("10.20.0.99", &Facts{})

	assert.Equal(t, "10.20.0.99", record.Name)
	assert.Equal(t, &models.OSInfo{Family: "windows"}, record.OS)
	assert.Nil(t, record.Hardware)
	assert.Nil(t, record.Network)
	assert.Nil(t, record.Metrics)
	assert.Nil(t, record.MAC)
	assert.Equal(t, []string{}, record.IPs)
}

func TestNormalizeSkipsPlaceholderMAC(t *testing.T) {
	facts := &Facts{Adapters: []NetworkAdapter{
		{Description: "WAN Miniport", MACAddress: "00-00-00-00-00-01"},
		{MACAddress: "00155D012A0B", IPAddress: []string{"", "192.168.56.10"}},
	}}
	record := Normalize("h", facts)

	require.NotNil(t, record.MAC)
	assert.Equal(t, "00:15:5d:01:2a:0b", *record.MAC)
	assert.Equal(t, "interface", record.Network.Interfaces[1].Name)
	assert.Equal(t, []string{"192.168.56.10"}, record.IPs)
}

func TestNormalizeNameFallsBackToComputerName(t *testing.T) {
	record := Normalize("h", &Facts{Computer: ComputerSystem{Name: "DESKTOP-42"}})
	assert.Equal(t, "DESKTOP-42", record.Name)
	assert.Equal(t, "DESKTOP-42", record.OS.Hostname)
}

func TestFormatCIMDateTime(t *testing.T) {
	cases := map[string]string{
		"20240115083000.500000+060": "2024-01-15T08:30:00.5+01:00",
		"20231231235959.000000-300": "2023-12-31T23:59:59-05:00",
		"20240101000000.000000+000": "2024-01-01T00:00:00Z",
		"20240101000000":            "2024-01-01T00:00:00Z",
		`\/Date(1700000000000)\/`:   "2023-11-14T22:13:20Z",
		"not a date":                "not a date",
		"":                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCIMDateTime(in), in)
	}
}

func TestFormatInstallDate(t *testing.T) {
	assert.Equal(t, "2024-01-10", FormatInstallDate("20240110"))
	assert.Equal(t, "2024-01-10", FormatInstallDate("20240110120000"))
	assert.Empty(t, FormatInstallDate("2024/01/10"))
	assert.Empty(t, FormatInstallDate("20241310"))
	assert.Empty(t, FormatInstallDate(""))
}

func TestResolveCredentials(t *testing.T) {
	cases := []struct {
		name      string
		username  string
		domain    string
		user      string
		wantDom   string
		qualified string
	}{
		{"backslash", `CORP\alice`, "", "alice", "CORP", `CORP\alice`},
		{"upn", "alice@corp.example", "", "alice", "corp.example", `corp.example\alice`},
		{"explicit domain", "alice", "CORP", "alice", "CORP", `CORP\alice`},
		{"explicit wins", `OTHER\alice`, "CORP", "alice", "CORP", `CORP\alice`},
		{"local", "Administrator", "", "Administrator", "", "Administrator"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			creds, err := ResolveCredentials(probe.Target{Host: "h", Username: tc.username, Domain: tc.domain, Password: "pw"})
			require.NoError(t, err)
			assert.Equal(t, tc.user, creds.Username)
			assert.Equal(t, tc.wantDom, creds.Domain)
			assert.Equal(t, tc.qualified, creds.Qualified)
		})
	}
}

func TestResolveCredentialsRequiresSecret(t *testing.T) {
	_, err := ResolveCredentials(probe.Target{Host: "h", Username: "alice"})
	assert.Error(t, err)
	_, err = ResolveCredentials(probe.Target{Host: "h", Password: "pw"})
	assert.Error(t, err)
}

func TestSplitHashes(t *testing.T) {
	lm, nt := SplitHashes("aad3b435b51404ee:31d6cfe0d16ae931")
	assert.Equal(t, "aad3b435b51404ee", lm)
	assert.Equal(t, "31d6cfe0d16ae931", nt)

	lm, nt = SplitHashes("31d6cfe0d16ae931")
	assert.Empty(t, lm)
	assert.Equal(t, "31d6cfe0d16ae931", nt)
}

func TestDecodePayloadTolerance(t *testing.T) {
	facts, err := DecodePayload([]byte(`{
		"os": [{"CSName": "SRV", "TotalVisibleMemorySize": "0x400"}],
		"computer": null,
		"processors": [{"Name": "CPU0", "NumberOfCores": "8"}, {"Name": "CPU1", "NumberOfCores": 8.0}],
		"interfaces": [{"Description": "eth", "IPAddress": "10.0.0.1", "DHCPEnabled": "True"}],
		"applications": [{"DisplayName": "App", "DisplayVersion": 2}, {"Name": "Other", "Vendor": "ACME"}]
	}`), 5)
	require.NoError(t, err)

	assert.Equal(t, "SRV", facts.OS.CSName)
	assert.Equal(t, uint64(1024), *facts.OS.TotalVisibleMemorySize)
	assert.Equal(t, ComputerSystem{}, facts.Computer)
	require.Len(t, facts.Processors, 2)
	assert.Equal(t, uint32(8), *facts.Processors[0].NumberOfCores)
	assert.Equal(t, uint32(8), *facts.Processors[1].NumberOfCores)
	assert.Equal(t, []string{"10.0.0.1"}, facts.Adapters[0].IPAddress)
	assert.True(t, facts.Adapters[0].DHCPEnabled)
	assert.Equal(t, []Application{
		{Name: "App", Version: "2"},
		{Name: "Other", Publisher: "ACME"},
	}, facts.Applications)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, err := DecodePayload([]byte("WARNING: something"), 0)
	assert.Error(t, err)
}
