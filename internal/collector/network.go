// Network interfaces: addresses and hardware addresses for the local
// record. Uses gopsutil for cross-platform interface enumeration.
package collector

import (
	"context"
	stdnet "net"
	"strings"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/parser"
)

func gatherNetwork(ctx context.Context, s *snapshot) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		s.fail("network interfaces", err)
		return
	}
	s.ifaces = ifaces
}

// network returns the interfaces, the ordered unique address list and the
// primary MAC: the first non-loopback, non-zero hardware address.
func (s *snapshot) network() (*models.NetworkInfo, []string, *string) {
	info := &models.NetworkInfo{}
	var ips []string
	var primary string

	for _, raw := range s.ifaces {
		iface := &models.Interface{
			Name:      raw.Name,
			Addresses: []string{},
			IsUp:      models.BoolPtr(hasFlag(raw.Flags, "up")),
		}
		if raw.HardwareAddr != "" {
			iface.MAC = parser.NormalizeMAC(raw.HardwareAddr)
		}
		for _, a := range raw.Addrs {
			iface.Addresses = models.AppendUnique(iface.Addresses, a.Addr)
			bare := parser.BareAddress(a.Addr)
			if ip := stdnet.ParseIP(bare); ip != nil && ip.To4() != nil {
				iface.IPv4Addresses = models.AppendUnique(iface.IPv4Addresses, bare)
			} else if ip != nil {
				iface.IPv6Addresses = models.AppendUnique(iface.IPv6Addresses, bare)
			}
			ips = models.AppendUnique(ips, bare)
		}
		loopback := hasFlag(raw.Flags, "loopback")
		if primary == "" && !loopback && iface.MAC != "" && iface.MAC != "00:00:00:00:00:00" {
			primary = iface.MAC
		}
		info.Interfaces = append(info.Interfaces, iface)
	}
	return info, ips, models.StringPtr(primary)
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}
