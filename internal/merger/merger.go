// Package merger combines the partial results of several network-device
// commands into one canonical asset record.
package merger

import (
	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/parser"
)

const (
	networkFamily = "network"
	ciscoVendor   = "Cisco"
)

// NetworkPartials is everything a network-device probe collected. Any
// field may be empty.
type NetworkPartials struct {
	Host         string
	DisplayName  string
	Version      parser.VersionFacts
	Inventory    parser.InventoryFacts
	Brief        []parser.BriefInterface
	IPv6         []parser.IPv6Interface
	VRFs         []models.VRF
	Descriptions []parser.DescriptionRow
	Warnings     []string
}

// interfaceSet keeps interfaces in first-seen order, keyed by exact name.
type interfaceSet struct {
	list  []*models.Interface
	index map[string]*models.Interface
}

func (s *interfaceSet) get(name string) *models.Interface {
	if iface, ok := s.index[name]; ok {
		return iface
	}
	iface := &models.Interface{Name: name, Addresses: []string{}}
	s.list = append(s.list, iface)
	s.index[name] = iface
	return iface
}

// MergeNetworkDevice builds the record in a fixed order: base facts,
// inventory, IPv4 brief, IPv6 brief, VRF table, descriptions. Inputs are
// never modified, so merging the same partials again gives the same record.
func MergeNetworkDevice(p NetworkPartials) *models.AssetRecord {
	record := &models.AssetRecord{
		Name:        resolveName(p),
		ProbeSource: models.SourceCiscoSSH,
		IPs:         []string{},
	}

	record.OS = &models.OSInfo{
		Family:   networkFamily,
		Vendor:   ciscoVendor,
		Version:  p.Version.Version,
		Image:    p.Version.Image,
		Hostname: p.Version.Hostname,
		Uptime:   p.Version.Uptime,
	}
	record.Hardware = &models.HardwareInfo{
		Vendor:  ciscoVendor,
		Model:   firstNonEmpty(p.Version.Model, p.Inventory.Model),
		Serial:  firstNonEmpty(p.Version.Serial, p.Inventory.Serial),
		BaseMAC: p.Version.BaseMAC,
	}
	record.MAC = models.StringPtr(p.Version.BaseMAC)

	set := &interfaceSet{index: make(map[string]*models.Interface)}
	for _, row := range p.Brief {
		iface := set.get(row.Name)
		if row.Address != "" {
			iface.Addresses = models.AppendUnique(iface.Addresses, row.Address)
			iface.IPv4Addresses = models.AppendUnique(iface.IPv4Addresses, row.Address)
		}
		fillEmpty(&iface.Status, row.Status)
		fillEmpty(&iface.Protocol, row.Protocol)
		fillEmpty(&iface.VRF, row.VRF)
	}

	for _, entry := range p.IPv6 {
		iface := set.get(entry.Name)
		iface.Addresses = models.AppendUnique(iface.Addresses, entry.Addresses...)
		iface.IPv6Addresses = models.AppendUnique(iface.IPv6Addresses, entry.Addresses...)
		fillEmpty(&iface.Status, entry.Status)
		fillEmpty(&iface.Protocol, entry.Protocol)
	}

	for _, vrf := range p.VRFs {
		if vrf.Name == "" {
			continue
		}
		for _, name := range vrf.Interfaces {
			if iface, ok := set.index[name]; ok {
				fillEmpty(&iface.VRF, vrf.Name)
			}
		}
	}

	for _, row := range p.Descriptions {
		iface, ok := set.index[row.Name]
		if !ok {
			continue
		}
		iface.Description = row.Description
		if row.Status != "" {
			iface.Status = row.Status
		}
		if row.Protocol != "" {
			iface.Protocol = row.Protocol
		}
	}

	for _, iface := range set.list {
		record.IPs = models.AppendUnique(record.IPs, iface.Addresses...)
	}

	if len(set.list) > 0 || len(p.VRFs) > 0 {
		record.Network = &models.NetworkInfo{
			Interfaces: set.list,
			VRFs:       copyVRFs(p.VRFs),
		}
	}

	for _, w := range p.Warnings {
		record.AddWarning(w)
	}
	record.Prune()
	return record
}

// resolveName applies the naming precedence: a hostname parsed from the
// version output always wins, then the display-name override, then the
// connection host.
func resolveName(p NetworkPartials) string {
	return firstNonEmpty(p.Version.Hostname, p.DisplayName, p.Host)
}

func copyVRFs(in []models.VRF) []models.VRF {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.VRF, len(in))
	for i, vrf := range in {
		out[i] = models.VRF{Name: vrf.Name, Interfaces: append([]string{}, vrf.Interfaces...)}
		if vrf.RouteDistinguisher != nil {
			rd := *vrf.RouteDistinguisher
			out[i].RouteDistinguisher = &rd
		}
	}
	return out
}

func fillEmpty(dst *string, value string) {
	if *dst == "" && value != "" {
		*dst = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
