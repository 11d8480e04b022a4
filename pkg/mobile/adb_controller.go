/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: adb_controller.go
Description: ADB-backed device controller. Lists attached devices and reads their
system properties through the shared command runner, parsing adb's text output.
*/

package mobile

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/kleascm/fvm/pkg/execution"
	"github.com/sirupsen/logrus"
)

// AndroidDeviceController implements DeviceController via the adb binary
type AndroidDeviceController struct {
	runner execution.CommandRunner
	binary string
	logger logrus.FieldLogger
}

// NewAndroidDeviceController creates a controller. binary defaults to "adb".
func NewAndroidDeviceController(runner execution.CommandRunner, binary string, logger logrus.FieldLogger) *AndroidDeviceController {
	if binary == "" {
		binary = "adb"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AndroidDeviceController{runner: runner, binary: binary, logger: logger}
}

// ListDevices runs `adb devices -l`
func (c *AndroidDeviceController) ListDevices(ctx context.Context) ([]Device, error) {
	out, err := c.runner.Run(ctx, execution.Command{Name: c.binary, Args: []string{"devices", "-l"}})
	if err != nil {
		return nil, err
	}
	devices := ParseDevices(out.Stdout)
	c.logger.WithField("count", len(devices)).Debug("Listed adb devices")
	return devices, nil
}

// GetDeviceInfo runs `adb -s <serial> shell getprop`
func (c *AndroidDeviceController) GetDeviceInfo(ctx context.Context, serial string) (map[string]string, error) {
	if serial == "" {
		return nil, fmt.Errorf("serial must not be empty")
	}
	out, err := c.runner.Run(ctx, execution.Command{Name: c.binary, Args: []string{"-s", serial, "shell", "getprop"}})
	if err != nil {
		return nil, err
	}
	return ParseGetprop(out.Stdout), nil
}

// Summary condenses getprop into the fields shown to users
func (c *AndroidDeviceController) Summary(ctx context.Context, serial string) (*DeviceSummary, error) {
	props, err := c.GetDeviceInfo(ctx, serial)
	if err != nil {
		return nil, err
	}
	return SummaryFromProps(serial, props), nil
}

// ParseDevices parses `adb devices -l`. The header, daemon notices, adb
// diagnostics and blank lines are skipped. Name mirrors the model.
func ParseDevices(output string) []Device {
	devices := make([]Device, 0)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		parts := strings.Fields(line)
		// "adb: error: ...", "error: no devices/emulators found"
		if strings.HasSuffix(parts[0], ":") {
			continue
		}
		d := Device{
			ID:      parts[0],
			Product: Unknown,
			Model:   Unknown,
			Device:  Unknown,
			State:   DeviceState(Unknown),
		}
		if len(parts) > 1 {
			d.State = DeviceState(parts[1])
		}
		for _, part := range parts[1:] {
			key, value, ok := strings.Cut(part, ":")
			if !ok || value == "" {
				continue
			}
			switch key {
			case "product":
				d.Product = value
			case "model":
				d.Model = value
			case "device":
				d.Device = value
			case "transport_id":
				d.TransportID = value
			}
		}
		d.Name = d.Model
		devices = append(devices, d)
	}
	return devices
}

// ParseGetprop parses lines of the form "[key]: [value]"
func ParseGetprop(output string) map[string]string {
	info := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "[") {
			continue
		}
		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		info[strings.Trim(key, "[]")] = strings.Trim(val, "[]")
	}
	return info
}

// SummaryFromProps picks the interesting properties
func SummaryFromProps(serial string, props map[string]string) *DeviceSummary {
	get := func(key string) string {
		if v := props[key]; v != "" {
			return v
		}
		return Unknown
	}
	return &DeviceSummary{
		Serial:         serial,
		Manufacturer:   get("ro.product.manufacturer"),
		Model:          get("ro.product.model"),
		AndroidVersion: get("ro.build.version.release"),
		SDK:            get("ro.build.version.sdk"),
		SecurityPatch:  get("ro.build.version.security_patch"),
		BuildID:        get("ro.build.id"),
	}
}
