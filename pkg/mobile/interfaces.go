/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Device discovery interfaces and types for Android devices reachable over ADB.
*/

package mobile

import "context"

// Unknown fills fields adb did not report
const Unknown = "Unknown"

// DeviceState as reported by adb
type DeviceState string

const (
	StateDevice       DeviceState = "device"
	StateUnauthorized DeviceState = "unauthorized"
	StateOffline      DeviceState = "offline"
	StateRecovery     DeviceState = "recovery"
)

// DeviceController abstracts device discovery and property lookup
type DeviceController interface {
	ListDevices(ctx context.Context) ([]Device, error)
	GetDeviceInfo(ctx context.Context, serial string) (map[string]string, error)
	Summary(ctx context.Context, serial string) (*DeviceSummary, error)
}

// Device is one entry of `adb devices -l`
type Device struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Product     string      `json:"product"`
	Model       string      `json:"model"`
	Device      string      `json:"device"`
	State       DeviceState `json:"state"`
	TransportID string      `json:"transport_id,omitempty"`
}

// Ready reports whether mvt can talk to the device
func (d Device) Ready() bool {
	return d.State == StateDevice
}

// DeviceSummary is the subset of getprop shown to users
type DeviceSummary struct {
	Serial         string `json:"serial"`
	Manufacturer   string `json:"manufacturer"`
	Model          string `json:"model"`
	AndroidVersion string `json:"android_version"`
	SDK            string `json:"sdk"`
	SecurityPatch  string `json:"security_patch"`
	BuildID        string `json:"build_id"`
}
