//go:build windows

package windows

import "github.com/yusufpapurcu/wmi"

func wmiAvailable() error { return nil }

func queryWMI(query string, dst interface{}, host, namespace string, creds Credentials) error {
	return wmi.Query(query, dst, host, namespace, creds.Qualified, creds.Password)
}
