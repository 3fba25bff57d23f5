package main

import (
	"fmt"
	"os"

	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "fmsample",
	Short:         "Flow-matching ODE sampling with DPM-Solver++ and UniPC",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log every run on stderr")
}

// logger returns a logfmt logger on stderr when verbose, a nop logger otherwise.
func logger(subsys string) kitlog.Logger {
	if !verbose {
		return kitlog.NewNopLogger()
	}
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	return kitlog.With(klog, "cmd", subsys)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
