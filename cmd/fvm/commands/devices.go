/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: devices.go
Description: devices command. Prints the devices adb can see.
*/

package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/kleascm/fvm/pkg/execution"
	"github.com/kleascm/fvm/pkg/mobile"
	"github.com/spf13/cobra"
)

// RunDevices lists attached devices
func RunDevices(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	runner := execution.NewProcessExecutor(cfg.MVT.Timeout, logger.GetLogger())
	controller := mobile.NewAndroidDeviceController(runner, cfg.MVT.ADBBinary, logger.GetLogger())

	start := time.Now()
	devices, err := controller.ListDevices(cmd.Context())
	if err != nil {
		logger.LogError("Device listing failed", err)
		return err
	}
	logger.LogCommand(cfg.MVT.ADBBinary+" devices -l", time.Since(start), 0, map[string]interface{}{
		"devices": len(devices),
	})
	if len(devices) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No devices attached")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERIAL\tSTATE\tMODEL\tPRODUCT\tDEVICE")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.State, d.Model, d.Product, d.Device)
	}
	return w.Flush()
}
