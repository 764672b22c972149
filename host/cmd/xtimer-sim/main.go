// Command xtimer-sim runs timer scenarios on a simulated counter, offers an
// interactive console and drives the multiplexer from the host clock.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "xtimer-sim",
	Short:        "Timer multiplexer simulator",
	Long:         "Run software timer scenarios against a simulated or host backed hardware counter.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd, replCmd, liveCmd)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("xtimer-sim: ")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
