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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jt05610/cpnmonitor/event"
	"github.com/jt05610/cpnmonitor/monitor"
	"github.com/jt05610/cpnmonitor/violation"
)

// traceLine is one line of the newline-delimited event trace the run
// command replays: the interpreter's own event stream serialized as
// JSON, one record per observe() call.
type traceLine struct {
	Event  string            `json:"event"`
	Fields map[string]uint64 `json:"fields"`
}

var tracePath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "replay a recorded event trace against a configured monitor",
	Long: `run reads a newline-delimited JSON event trace (one {"event": ..., "fields": ...}
object per line) and drives a Monitor's observe() with each one, in order. It
is the trace-replay harness used in place of a live interpreter — for
regression-testing a model against captured executions, and for model-checker
style replay where on_execution_end() is invoked once the trace is exhausted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return fmt.Errorf("run requires --enable=<path>; the monitor is disabled without a configuration")
		}

		policy := violation.FailFast
		if !effectivePolicy() {
			policy = violation.Continue
		}

		m, err := monitor.New(configPath, monitor.Config{
			Policy:                  policy,
			LogPath:                 logPath,
			PrintMarkingOnEachEvent: printMarking,
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = m.Close()
		}()

		in, err := traceSource(tracePath)
		if err != nil {
			return err
		}
		defer func() {
			_ = in.Close()
		}()

		violations := 0
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var tl traceLine
			if err := json.Unmarshal(line, &tl); err != nil {
				return fmt.Errorf("parsing trace line: %w", err)
			}
			err := m.Observe(event.New(event.Kind(tl.Event), tl.Fields))
			if err != nil {
				if _, ok := err.(*violation.Diagnostic); !ok {
					return err
				}
				violations++
				if policy == violation.FailFast {
					m.OnExecutionEnd()
					return err
				}
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading trace: %w", err)
		}

		m.OnExecutionEnd()
		if violations > 0 {
			return fmt.Errorf("%d protocol violation(s) observed", violations)
		}
		return nil
	},
}

func traceSource(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&tracePath, "trace", "t", "", "event trace file (newline-delimited JSON); defaults to standard input")
}
