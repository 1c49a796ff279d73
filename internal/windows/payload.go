package windows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ConvertTo-Json emits a lone object instead of a one-element array and
// may render numbers as strings, so every field of the payload is decoded
// leniently.

type winrmPayload struct {
	OS           oneOrMany[winrmOS]        `json:"os"`
	Computer     oneOrMany[winrmComputer]  `json:"computer"`
	Processors   oneOrMany[winrmProcessor] `json:"processors"`
	Interfaces   oneOrMany[winrmAdapter]   `json:"interfaces"`
	Disks        oneOrMany[winrmDisk]      `json:"disks"`
	Applications oneOrMany[winrmApp]       `json:"applications"`
}

type winrmOS struct {
	Caption                flexString `json:"Caption"`
	Version                flexString `json:"Version"`
	BuildNumber            flexString `json:"BuildNumber"`
	CSName                 flexString `json:"CSName"`
	OSArchitecture         flexString `json:"OSArchitecture"`
	LastBootUpTime         flexString `json:"LastBootUpTime"`
	TotalVisibleMemorySize flexUint   `json:"TotalVisibleMemorySize"`
	FreePhysicalMemory     flexUint   `json:"FreePhysicalMemory"`
}

type winrmComputer struct {
	Name                      flexString `json:"Name"`
	Manufacturer              flexString `json:"Manufacturer"`
	Model                     flexString `json:"Model"`
	TotalPhysicalMemory       flexUint   `json:"TotalPhysicalMemory"`
	NumberOfProcessors        flexUint   `json:"NumberOfProcessors"`
	NumberOfLogicalProcessors flexUint   `json:"NumberOfLogicalProcessors"`
}

type winrmProcessor struct {
	Name                      flexString `json:"Name"`
	NumberOfCores             flexUint   `json:"NumberOfCores"`
	NumberOfLogicalProcessors flexUint   `json:"NumberOfLogicalProcessors"`
	MaxClockSpeed             flexUint   `json:"MaxClockSpeed"`
}

type winrmAdapter struct {
	Description      flexString `json:"Description"`
	MACAddress       flexString `json:"MACAddress"`
	IPAddress        flexList   `json:"IPAddress"`
	IPSubnet         flexList   `json:"IPSubnet"`
	DefaultIPGateway flexList   `json:"DefaultIPGateway"`
	DHCPEnabled      flexBool   `json:"DHCPEnabled"`
}

type winrmDisk struct {
	DeviceID   flexString `json:"DeviceID"`
	FileSystem flexString `json:"FileSystem"`
	VolumeName flexString `json:"VolumeName"`
	Size       flexUint   `json:"Size"`
	FreeSpace  flexUint   `json:"FreeSpace"`
}

// winrmApp accepts both the registry (Display*) and Win32_Product names.
type winrmApp struct {
	DisplayName    flexString `json:"DisplayName"`
	Name           flexString `json:"Name"`
	DisplayVersion flexString `json:"DisplayVersion"`
	Version        flexString `json:"Version"`
	Publisher      flexString `json:"Publisher"`
	Vendor         flexString `json:"Vendor"`
	InstallDate    flexString `json:"InstallDate"`
}

// DecodePayload converts the collection script output to Facts. At most
// limit applications are kept.
func DecodePayload(data []byte, limit int) (*Facts, error) {
	var payload winrmPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding script output: %w", err)
	}

	facts := &Facts{}
	if len(payload.OS) > 0 {
		os := payload.OS[0]
		facts.OS = OperatingSystem{
			Caption:                string(os.Caption),
			Version:                string(os.Version),
			BuildNumber:            string(os.BuildNumber),
			CSName:                 string(os.CSName),
			OSArchitecture:         string(os.OSArchitecture),
			LastBootUpTime:         string(os.LastBootUpTime),
			TotalVisibleMemorySize: os.TotalVisibleMemorySize.Value,
			FreePhysicalMemory:     os.FreePhysicalMemory.Value,
		}
	}
	if len(payload.Computer) > 0 {
		c := payload.Computer[0]
		facts.Computer = ComputerSystem{
			Name:                      string(c.Name),
			Manufacturer:              string(c.Manufacturer),
			Model:                     string(c.Model),
			TotalPhysicalMemory:       c.TotalPhysicalMemory.Value,
			NumberOfProcessors:        c.NumberOfProcessors.uint32(),
			NumberOfLogicalProcessors: c.NumberOfLogicalProcessors.uint32(),
		}
	}
	for _, p := range payload.Processors {
		facts.Processors = append(facts.Processors, Processor{
			Name:                      string(p.Name),
			NumberOfCores:             p.NumberOfCores.uint32(),
			NumberOfLogicalProcessors: p.NumberOfLogicalProcessors.uint32(),
			MaxClockSpeed:             p.MaxClockSpeed.uint32(),
		})
	}
	for _, a := range payload.Interfaces {
		facts.Adapters = append(facts.Adapters, NetworkAdapter{
			Description:      string(a.Description),
			MACAddress:       string(a.MACAddress),
			IPAddress:        a.IPAddress,
			IPSubnet:         a.IPSubnet,
			DefaultIPGateway: a.DefaultIPGateway,
			DHCPEnabled:      bool(a.DHCPEnabled),
		})
	}
	for _, d := range payload.Disks {
		facts.Disks = append(facts.Disks, LogicalDisk{
			DeviceID:   string(d.DeviceID),
			FileSystem: string(d.FileSystem),
			VolumeName: string(d.VolumeName),
			Size:       d.Size.Value,
			FreeSpace:  d.FreeSpace.Value,
		})
	}
	for _, app := range payload.Applications {
		if len(facts.Applications) >= limit {
			break
		}
		facts.Applications = append(facts.Applications, Application{
			Name:        firstNonEmpty(clean(string(app.DisplayName)), clean(string(app.Name))),
			Version:     firstNonEmpty(clean(string(app.DisplayVersion)), clean(string(app.Version))),
			Publisher:   firstNonEmpty(clean(string(app.Publisher)), clean(string(app.Vendor))),
			InstallDate: string(app.InstallDate),
		})
	}
	return facts, nil
}

// oneOrMany decodes either a JSON array or a single value.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*o = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*o = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*o = []T{item}
	return nil
}

// flexString accepts strings, numbers and booleans.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = flexString(val)
	case float64:
		*s = flexString(strconv.FormatFloat(val, 'f', -1, 64))
	case bool:
		*s = flexString(strconv.FormatBool(val))
	default:
		*s = ""
	}
	return nil
}

// flexUint accepts numbers and numeric strings, including hex. Anything
// else decodes to a nil Value.
type flexUint struct {
	Value *uint64
}

func (u *flexUint) UnmarshalJSON(data []byte) error {
	u.Value = nil
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch val := v.(type) {
	case json.Number:
		if n, ok := parseUint(val.String()); ok {
			u.Value = &n
		}
	case string:
		if n, ok := parseUint(val); ok {
			u.Value = &n
		}
	case bool:
		var n uint64
		if val {
			n = 1
		}
		u.Value = &n
	}
	return nil
}

func parseUint(text string) (uint64, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(strings.ToLower(text), "0x") {
		n, err := strconv.ParseUint(text[2:], 16, 64)
		return n, err == nil
	}
	if n, err := strconv.ParseUint(text, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f < 0 || f > math.MaxUint64 {
		return 0, false
	}
	return uint64(f), true
}

func (u flexUint) uint32() *uint32 {
	if u.Value == nil || *u.Value > math.MaxUint32 {
		return nil
	}
	n := uint32(*u.Value)
	return &n
}

// flexList accepts a string array, a single string or null.
type flexList []string

func (l *flexList) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = nil
	switch val := v.(type) {
	case string:
		*l = flexList{val}
	case []interface{}:
		for _, item := range val {
			if s, ok := item.(string); ok {
				*l = append(*l, s)
			}
		}
	}
	return nil
}

// flexBool accepts booleans, "true"/"false" strings and numbers.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case bool:
		*b = flexBool(val)
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(val))
		*b = flexBool(parsed)
	case float64:
		*b = val != 0
	default:
		*b = false
	}
	return nil
}
