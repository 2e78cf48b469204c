/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jt05610/cpnmonitor/env"
)

var (
	configPath   string
	logPath      string
	failFast     bool
	noFailFast   bool
	printMarking bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cpnmonitor",
	Short: "cpnmonitor drives a Colored Petri Net model from a stream of protocol events",
	Long: `cpnmonitor attaches a runtime Colored Petri Net monitor to a stream of
protocol-layer events (locks, atomics, thread spawns/joins) and reports
protocol violations — events whose mapped transition is not enabled in the
current marking.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

func init() {
	logger := env.NewLogger()
	defaults := env.LoadDefaults(logger)

	rootCmd.PersistentFlags().StringVar(&configPath, "enable", defaults.ConfigPath, "construct the monitor from the configuration at this path; absent disables the monitor")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", defaults.LogPath, "append log records to this path")
	rootCmd.PersistentFlags().BoolVar(&failFast, "fail-fast", defaults.FailFast, "abort on the first protocol violation (default)")
	rootCmd.PersistentFlags().BoolVar(&noFailFast, "no-fail-fast", false, "log violations and continue instead of aborting")
	rootCmd.PersistentFlags().BoolVar(&printMarking, "print-marking-on-each-event", defaults.PrintMarking, "emit the marking hash after every event to standard error")
}

// effectivePolicy resolves the fail-fast/no-fail-fast flag pair into
// whether fail-fast applies (true maps to violation.FailFast, false to
// violation.Continue): --no-fail-fast wins whenever it was passed
// explicitly, regardless of --fail-fast's value.
func effectivePolicy() bool {
	if noFailFast {
		return false
	}
	return failFast
}
