//go:build !windows

package windows

import (
	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
)

var errNoWMI = &probe.BackendUnavailableError{
	Backend: models.SourceWMI,
	Reason:  "WMI over DCOM requires a Windows probe host",
}

func wmiAvailable() error { return errNoWMI }

func queryWMI(string, interface{}, string, string, Credentials) error { return errNoWMI }
