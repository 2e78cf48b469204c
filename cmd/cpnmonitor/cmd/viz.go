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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jt05610/cpnmonitor/config"
	"github.com/jt05610/cpnmonitor/graphviz"
)

var (
	vizOutput string
	vizFont   string
)

// vizCmd represents the viz command
var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "render a model's places, transitions and arcs to a graphviz figure",
	Long:  `viz loads the configuration at --enable and writes its net as a graphviz XDOT figure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return fmt.Errorf("viz requires --enable=<path>")
		}
		file, err := config.Load(configPath)
		if err != nil {
			return err
		}
		net, _, _, err := file.Validate(nil)
		if err != nil {
			return err
		}

		out := os.Stdout
		if vizOutput != "" && vizOutput != "-" {
			f, err := os.Create(vizOutput)
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()
			out = f
		}

		w := graphviz.New(&graphviz.Config{
			Font:    graphviz.Font(vizFont),
			RankDir: graphviz.LeftToRight,
		})
		return w.Flush(out, net)
	},
}

func init() {
	rootCmd.AddCommand(vizCmd)
	vizCmd.Flags().StringVarP(&vizOutput, "output", "o", "", "output file; defaults to standard output")
	vizCmd.Flags().StringVarP(&vizFont, "font", "f", string(graphviz.Helvetica), "node/edge font name")
}
