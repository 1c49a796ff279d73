package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOSRelease(t *testing.T) {
	out := "NAME=\"Ubuntu\"\n" +
		"VERSION=\"22.04.3 LTS (Jammy Jellyfish)\"\n" +
		"ID=ubuntu\n" +
		"# comment\n" +
		"PRETTY_NAME=\"Ubuntu 22.04.3 LTS\"\n" +
		"garbage line\n"

	fields := ParseOSRelease(out)
	assert.Equal(t, "Ubuntu", fields["NAME"])
	assert.Equal(t, "22.04.3 LTS (Jammy Jellyfish)", fields["VERSION"])
	assert.Equal(t, "ubuntu", fields["ID"])
	assert.Equal(t, "Ubuntu 22.04.3 LTS", fields["PRETTY_NAME"])
	assert.Len(t, fields, 4)
}

func TestParseIPAddrJSON(t *testing.T) {
	out := `[{"ifindex":1,"ifname":"lo","flags":["LOOPBACK","UP","LOWER_UP"],"addr_info":[{"family":"inet","local":"127.0.0.1","prefixlen":8}]},` +
		`{"ifindex":2,"ifname":"eth0","flags":["BROADCAST","MULTICAST","UP"],"addr_info":[{"family":"inet","local":"192.0.2.10","prefixlen":24},{"family":"inet6","local":"fe80::5054:ff:fe12:3456","prefixlen":64}]},` +
		`{"ifindex":3,"ifname":"eth1","flags":["BROADCAST","MULTICAST"],"addr_info":[]}]`

	ifaces, ok := ParseIPAddrJSON(out)
	require.True(t, ok)
	require.Len(t, ifaces, 3)

	assert.Equal(t, "lo", ifaces[0].Name)
	assert.Equal(t, []string{"127.0.0.1/8"}, ifaces[0].Addresses)
	assert.True(t, ifaces[1].IsUp)
	assert.Equal(t, []string{"192.0.2.10/24", "fe80::5054:ff:fe12:3456/64"}, ifaces[1].Addresses)
	assert.False(t, ifaces[2].IsUp)
	assert.Equal(t, []string{}, ifaces[2].Addresses)
}

func TestParseIPAddrJSONInvalid(t *testing.T) {
	_, ok := ParseIPAddrJSON("bash: ip: command not found")
	assert.False(t, ok)
	_, ok = ParseIPAddrJSON("")
	assert.False(t, ok)
}

func TestParseIPLinkJSON(t *testing.T) {
	out := `[{"ifname":"lo","address":"00:00:00:00:00:00"},{"ifname":"eth0","address":"52:54:00:12:34:56"},{"ifname":"tun0"}]`

	macs := ParseIPLinkJSON(out)
	assert.Equal(t, map[string]string{"lo": "00:00:00:00:00:00", "eth0": "52:54:00:12:34:56"}, macs)
	assert.Nil(t, ParseIPLinkJSON("nope"))
}

func TestParseIfconfigBSD(t *testing.T) {
	out := "em0: flags=8843<UP,BROADCAST,RUNNING,SIMPLEX,MULTICAST> metric 0 mtu 1500\n" +
		"\tether 08:00:27:aa:bb:cc\n" +
		"\tinet 192.0.2.20 netmask 0xffffff00 broadcast 192.0.2.255\n" +
		"\tinet6 fe80::a00:27ff:feaa:bbcc%em0 prefixlen 64 scopeid 0x1\n" +
		"em1: flags=8802<BROADCAST,SIMPLEX,MULTICAST> metric 0 mtu 1500\n" +
		"\tlladdr 08:00:27:dd:ee:ff\n" +
		"lo0: flags=8049<UP,LOOPBACK,RUNNING,MULTICAST> metric 0 mtu 16384\n" +
		"\tinet 127.0.0.1 netmask 0xff000000\n"

	ifaces := ParseIfconfig(out)
	require.Len(t, ifaces, 3)

	assert.Equal(t, "em0", ifaces[0].Name)
	assert.True(t, ifaces[0].IsUp)
	assert.Equal(t, "08:00:27:aa:bb:cc", ifaces[0].MAC)
	assert.Equal(t, []string{"192.0.2.20", "fe80::a00:27ff:feaa:bbcc%em0"}, ifaces[0].Addresses)

	assert.False(t, ifaces[1].IsUp)
	assert.Equal(t, "08:00:27:dd:ee:ff", ifaces[1].MAC)
	assert.Empty(t, ifaces[1].Addresses)

	assert.Equal(t, "lo0", ifaces[2].Name)
}

func TestParseIfconfigLegacyLinux(t *testing.T) {
	out := "eth0      Link encap:Ethernet  HWaddr 08:00:27:11:22:33\n" +
		"          inet addr:10.0.0.5  Bcast:10.0.0.255  Mask:255.255.255.0\n" +
		"          inet6 addr: fe80::a00:27ff:fe11:2233/64 Scope:Link\n"

	ifaces := ParseIfconfig(out)
	require.Len(t, ifaces, 1)
	assert.Equal(t, "eth0", ifaces[0].Name)
	assert.Equal(t, "08:00:27:11:22:33", ifaces[0].MAC)
	assert.Equal(t, []string{"10.0.0.5", "fe80::a00:27ff:fe11:2233/64"}, ifaces[0].Addresses)
}

func TestBareAddress(t *testing.T) {
	assert.Equal(t, "fe80::1", BareAddress("fe80::1%em0"))
	assert.Equal(t, "192.0.2.10", BareAddress("192.0.2.10/24"))
	assert.Equal(t, "10.0.0.1", BareAddress("10.0.0.1"))
}

func TestParseLscpuJSON(t *testing.T) {
	out := `{"lscpu":[{"field":"Architecture:","data":"x86_64"},{"field":"CPU(s):","data":"8"},` +
		`{"field":"Model name:","data":"Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz"},{"field":"Flags:","data":null}]}`

	facts, ok := ParseLscpuJSON(out)
	require.True(t, ok)
	assert.Equal(t, "x86_64", facts.Architecture)
	assert.Equal(t, "Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz", facts.Model)
	require.NotNil(t, facts.Count)
	assert.Equal(t, 8, *facts.Count)

	_, ok = ParseLscpuJSON("lscpu: invalid option -- 'J'")
	assert.False(t, ok)
}

func TestParseLscpuText(t *testing.T) {
	out := "Architecture:            aarch64\n" +
		"CPU(s):                  4\n" +
		"On-line CPU(s) list:     0-3\n" +
		"Model name:              Cortex-A72\n" +
		"NUMA node0 CPU(s):       0-3\n"

	facts := ParseLscpuText(out)
	assert.Equal(t, "aarch64", facts.Architecture)
	assert.Equal(t, "Cortex-A72", facts.Model)
	require.NotNil(t, facts.Count)
	assert.Equal(t, 4, *facts.Count)
}

func TestParseMeminfo(t *testing.T) {
	out := "MemTotal:        16318480 kB\n" +
		"MemFree:          1234567 kB\n" +
		"MemAvailable:     8765432 kB\n" +
		"SwapTotal:        2097148 kB\n" +
		"SwapFree:         2097000 kB\n"

	info := ParseMeminfo(out)
	require.NotNil(t, info.TotalKB)
	assert.Equal(t, uint64(16318480), *info.TotalKB)
	assert.Equal(t, uint64(8765432), *info.FreeKB)
	assert.Equal(t, uint64(2097148), *info.SwapTotalKB)
	assert.Equal(t, uint64(2097000), *info.SwapFreeKB)

	assert.Equal(t, MemInfo{}, ParseMeminfo("cat: /proc/meminfo: No such file or directory"))
}

func TestParseSwapctl(t *testing.T) {
	total, free := ParseSwapctl("total: 1048576 1K-blocks allocated, 10240 used, 1038336 available")
	require.NotNil(t, total)
	assert.Equal(t, uint64(1048576), *total)
	assert.Equal(t, uint64(1038336), *free)

	total, free = ParseSwapctl("Device          1K-blocks     Used    Avail Capacity\n" +
		"/dev/ada0p3       2097152     1024  2096128     0%\n" +
		"Total:         2097152       1024\n")
	require.NotNil(t, total)
	assert.Equal(t, uint64(2097152), *total)
	assert.Equal(t, uint64(2096128), *free)

	total, free = ParseSwapctl("no swap devices configured")
	assert.Nil(t, total)
	assert.Nil(t, free)
}

func TestParseDF(t *testing.T) {
	out := "Filesystem     1024-blocks      Used Available Capacity Mounted on\n" +
		"/dev/sda1         41152832  12345678  26693826      32% /\n" +
		"tmpfs              8159240         0   8159240       0% /dev/shm\n" +
		"/dev/sdb1        103081248  51540624  46281360      53% /srv/data store\n" +
		"nas:/export        1000000    500000    500000      50% /mnt/nas\n" +
		"devfs                    1         1         0     100% /dev\n"

	disks := ParseDF(out)
	require.Len(t, disks, 2)

	assert.Equal(t, "/dev/sda1", disks[0].Filesystem)
	assert.Equal(t, "/", disks[0].Mount)
	assert.Equal(t, uint64(41152832), *disks[0].SizeKB)
	assert.Equal(t, uint64(12345678), *disks[0].UsedKB)
	assert.Equal(t, uint64(26693826), *disks[0].AvailableKB)
	assert.Equal(t, "32%", disks[0].Capacity)

	assert.Equal(t, "/srv/data store", disks[1].Mount)
}

func TestIsSystemMount(t *testing.T) {
	assert.True(t, IsSystemMount("/dev"))
	assert.True(t, IsSystemMount("/dev/shm"))
	assert.True(t, IsSystemMount("/run"))
	assert.True(t, IsSystemMount("/System/Volumes/VM"))
	assert.False(t, IsSystemMount("/devdata"))
	assert.False(t, IsSystemMount("/devel"))
	assert.False(t, IsSystemMount("/runner"))
}

func TestParseDFKeepsMountsNamedLikeDev(t *testing.T) {
	out := "Filesystem     1024-blocks      Used Available Capacity Mounted on\n" +
		"/dev/sdc1         2000000   1000000   1000000      50% /devdata\n" +
		"/dev/sdd1         2000000    500000   1500000      25% /dev/mapper-scratch\n"

	disks := ParseDF(out)
	require.Len(t, disks, 1)
	assert.Equal(t, "/devdata", disks[0].Mount)
}

func TestIsPseudoFilesystem(t *testing.T) {
	assert.True(t, IsPseudoFilesystem("tmpfs"))
	assert.True(t, IsPseudoFilesystem("NFS4"))
	assert.True(t, IsPseudoFilesystem("//server/share"))
	assert.False(t, IsPseudoFilesystem("ext4"))
	assert.False(t, IsPseudoFilesystem("/dev/nvme0n1p2"))
}

func TestParseUptime(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		uptime string
		load   [3]float64
	}{
		{
			name:   "linux",
			in:     " 10:15:01 up 3 days,  2:03,  2 users,  load average: 0.00, 0.01, 0.05",
			uptime: "3 days, 2:03",
			load:   [3]float64{0, 0.01, 0.05},
		},
		{
			name:   "bsd",
			in:     "10:15AM  up 12 days,  4:31, 1 user, load averages: 0.52 0.41 0.38",
			uptime: "12 days, 4:31",
			load:   [3]float64{0.52, 0.41, 0.38},
		},
		{
			name:   "no users column",
			in:     " 10:15:01 up 1 min,  load average: 0.10, 0.20, 0.30",
			uptime: "1 min",
			load:   [3]float64{0.10, 0.20, 0.30},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := ParseUptime(tt.in)
			assert.Equal(t, tt.uptime, facts.Uptime)
			require.NotNil(t, facts.Load)
			assert.InDelta(t, tt.load[0], facts.Load.Load1, 1e-9)
			assert.InDelta(t, tt.load[1], facts.Load.Load5, 1e-9)
			assert.InDelta(t, tt.load[2], facts.Load.Load15, 1e-9)
		})
	}

	assert.Equal(t, UptimeFacts{}, ParseUptime(""))
}

func TestExtractInt(t *testing.T) {
	n, ok := ExtractInt("MemTotal:  1,234 kB")
	require.True(t, ok)
	assert.Equal(t, int64(1234), n)

	_, ok = ExtractInt("none")
	assert.False(t, ok)
}
