package parser

import (
	"regexp"
	"strings"

	"github.com/Guliveer/assetprobe/internal/models"
)

// VersionFacts is the partial produced from "show version".
type VersionFacts struct {
	Version  string
	Model    string
	Serial   string
	BaseMAC  string
	Hostname string
	Uptime   string
	Image    string
}

// InventoryFacts is the partial produced from "show inventory".
type InventoryFacts struct {
	Model  string
	Serial string
}

// BriefInterface is one row of "show ip interface brief".
type BriefInterface struct {
	Name     string
	Address  string
	Status   string
	Protocol string
	VRF      string
}

// IPv6Interface is one block of "show ipv6 interface brief".
type IPv6Interface struct {
	Name      string
	Status    string
	Protocol  string
	Addresses []string
}

// DescriptionRow is one row of "show interface description".
type DescriptionRow struct {
	Name        string
	Status      string
	Protocol    string
	Description string
}

var (
	versionRE      = regexp.MustCompile(`Version\s+([\w\.()\-]+)`)
	modelRE        = regexp.MustCompile(`(?im)^cisco\s+([\w\-]+)\s+\(`)
	modelNumberRE  = regexp.MustCompile(`(?m)^Model number\s*:\s*(\S+)`)
	boardIDRE      = regexp.MustCompile(`Processor board ID\s+(\S+)`)
	systemSerialRE = regexp.MustCompile(`System serial number\s*:\s*(\S+)`)
	baseMACRE      = regexp.MustCompile(`Base ethernet MAC Address\s*:\s*([0-9a-fA-F\.:\-]+)`)
	hostnameRE     = regexp.MustCompile(`(?m)^(\S+) uptime is`)
	uptimeRE       = regexp.MustCompile(`(?m)uptime is\s+(.+)$`)
	imageRE        = regexp.MustCompile(`System image file is\s+"?([^\s"]+)"?`)

	chassisRE = regexp.MustCompile(`(?s)NAME:\s*"Chassis".*?PID:\s*([^,\s]+).*?SN:\s*(\S+)`)

	briefRE      = regexp.MustCompile(`(?i)^(\S+)\s+(\S+)\s+\S+\s+\S+\s+(.+?)\s+(\S+)(?:\s+(\S+))?$`)
	briefNoVRFRE = regexp.MustCompile(`(?i)^(\S+)\s+(\S+)\s+\S+\s+\S+\s+(.+?)\s+(\S+)$`)

	ipv6HeaderRE = regexp.MustCompile(`^(\S+)\s+\[([^\]]+)\]`)

	columnGapRE = regexp.MustCompile(`\s{2,}`)
	listSepRE   = regexp.MustCompile(`[\s,]+`)
)

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ParseShowVersion extracts software, chassis and identity facts.
func ParseShowVersion(output string) VersionFacts {
	var facts VersionFacts
	output = strings.ReplaceAll(output, "\r", "")
	if strings.TrimSpace(output) == "" {
		return facts
	}

	facts.Version = firstGroup(versionRE, output)
	facts.Model = firstGroup(modelRE, output)
	if facts.Model == "" {
		facts.Model = firstGroup(modelNumberRE, output)
	}
	facts.Serial = firstGroup(boardIDRE, output)
	if facts.Serial == "" {
		facts.Serial = firstGroup(systemSerialRE, output)
	}
	if mac := firstGroup(baseMACRE, output); mac != "" {
		facts.BaseMAC = NormalizeMAC(mac)
	}
	facts.Hostname = firstGroup(hostnameRE, output)
	facts.Uptime = firstGroup(uptimeRE, output)
	facts.Image = firstGroup(imageRE, output)
	return facts
}

// ParseShowInventory reads the chassis PID and SN.
func ParseShowInventory(output string) InventoryFacts {
	var facts InventoryFacts
	if m := chassisRE.FindStringSubmatch(output); m != nil {
		facts.Model = m[1]
		facts.Serial = strings.TrimSpace(m[2])
	}
	return facts
}

// ParseInterfaceBrief reads the IPv4 brief table. The trailing column is
// treated as a VRF name unless the table header shows there is no VRF
// column; "--" means the interface is in the global table.
func ParseInterfaceBrief(output string) []BriefInterface {
	var rows []BriefInterface
	re := briefRE
	for _, line := range lines(output) {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(stripped), "interface") {
			if !strings.Contains(strings.ToLower(stripped), "vrf") {
				re = briefNoVRFRE
			}
			continue
		}
		m := re.FindStringSubmatch(stripped)
		if m == nil {
			continue
		}
		row := BriefInterface{
			Name:     m[1],
			Status:   strings.TrimSpace(m[3]),
			Protocol: strings.TrimSpace(m[4]),
		}
		if !strings.EqualFold(m[2], "unassigned") {
			row.Address = m[2]
		}
		if len(m) > 5 && m[5] != "" && m[5] != "--" {
			row.VRF = m[5]
		}
		rows = append(rows, row)
	}
	return rows
}

// ParseIPv6InterfaceBrief reads "name [status/protocol]" headers followed by
// indented address lines. Blocks keep device order.
func ParseIPv6InterfaceBrief(output string) []IPv6Interface {
	var result []IPv6Interface
	current := -1
	for _, raw := range lines(output) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := ipv6HeaderRE.FindStringSubmatch(line); m != nil {
			entry := IPv6Interface{Name: m[1]}
			parts := strings.SplitN(m[2], "/", 2)
			entry.Status = strings.TrimSpace(parts[0])
			if len(parts) > 1 {
				entry.Protocol = strings.TrimSpace(parts[1])
			}
			result = append(result, entry)
			current = len(result) - 1
			continue
		}
		if current < 0 || strings.EqualFold(line, "unassigned") {
			continue
		}
		addr := strings.Fields(line)[0]
		result[current].Addresses = models.AppendUnique(result[current].Addresses, addr)
	}
	return result
}

// ParseVRFTable reads "show vrf". When a header line is present, cells are
// assigned to columns by the header's character offsets, so a blank
// Protocols cell does not shift the interface list. Without a header the
// row is name, RD, interfaces. Rows share the indentation of the first data
// row; lines indented further continue the previous VRF's interface list.
func ParseVRFTable(output string) []models.VRF {
	var nonBlank []string
	for _, line := range lines(output) {
		if strings.TrimSpace(line) != "" {
			nonBlank = append(nonBlank, strings.TrimRight(line, " \t"))
		}
	}
	if len(nonBlank) == 0 {
		return nil
	}

	var layout *vrfLayout
	header := strings.ToLower(nonBlank[0])
	if strings.Contains(header, "name") && strings.Contains(header, "interfaces") {
		layout = newVRFLayout(header)
		nonBlank = nonBlank[1:]
	}

	var vrfs []models.VRF
	rowIndent := -1
	for _, line := range nonBlank {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "(default vrf)") {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if rowIndent < 0 {
			rowIndent = indent
		}
		if indent <= rowIndent {
			vrfs = append(vrfs, layout.row(line))
			continue
		}
		last := &vrfs[len(vrfs)-1]
		last.Interfaces = appendTokens(last.Interfaces, trimmed)
	}
	return vrfs
}

// vrfLayout holds the header offsets of the "show vrf" table.
type vrfLayout struct {
	rdEnd      int // first column after Default RD
	interfaces int
}

func newVRFLayout(header string) *vrfLayout {
	l := &vrfLayout{interfaces: strings.Index(header, "interfaces")}
	l.rdEnd = l.interfaces
	if p := strings.Index(header, "protocols"); p >= 0 && p < l.interfaces {
		l.rdEnd = p
	}
	return l
}

type textCell struct {
	text       string
	start, end int
}

// splitCells splits a table row on runs of two or more blanks, keeping
// each cell's character offsets.
func splitCells(line string) []textCell {
	var cells []textCell
	start := len(line) - len(strings.TrimLeft(line, " \t"))
	for _, gap := range columnGapRE.FindAllStringIndex(line[start:], -1) {
		gs, ge := gap[0]+start, gap[1]+start
		cells = append(cells, textCell{text: line[start:gs], start: start, end: gs})
		start = ge
	}
	if start < len(line) {
		cells = append(cells, textCell{text: line[start:], start: start, end: len(line)})
	}
	return cells
}

func (l *vrfLayout) row(line string) models.VRF {
	cells := splitCells(line)
	vrf := models.VRF{Name: cells[0].text, Interfaces: []string{}}

	if l == nil {
		if len(cells) > 1 && cells[1].text != "<not set>" {
			vrf.RouteDistinguisher = models.StringPtr(cells[1].text)
		}
		for _, c := range cells[min(len(cells), 2):] {
			vrf.Interfaces = appendTokens(vrf.Interfaces, c.text)
		}
		return vrf
	}

	for _, c := range cells[1:] {
		switch {
		case c.end > l.interfaces:
			vrf.Interfaces = appendTokens(vrf.Interfaces, c.text)
		case c.start < l.rdEnd && vrf.RouteDistinguisher == nil && c.text != "<not set>":
			vrf.RouteDistinguisher = models.StringPtr(c.text)
		}
	}
	return vrf
}

func appendTokens(list []string, text string) []string {
	for _, token := range listSepRE.Split(text, -1) {
		if token != "" {
			list = append(list, token)
		}
	}
	return list
}

// ParseInterfaceDescriptions reads the fixed-column description table. The
// description is everything after the third field; rows without one are
// skipped.
func ParseInterfaceDescriptions(output string) []DescriptionRow {
	var rows []DescriptionRow
	all := lines(output)
	if len(all) > 0 && strings.Contains(all[0], "Interface") && strings.Contains(all[0], "Description") {
		all = all[1:]
	}
	for _, line := range all {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := splitFields(strings.TrimRight(line, " \t"), 4)
		if len(parts) < 4 {
			continue
		}
		rows = append(rows, DescriptionRow{
			Name:        parts[0],
			Status:      parts[1],
			Protocol:    parts[2],
			Description: strings.TrimSpace(parts[3]),
		})
	}
	return rows
}
