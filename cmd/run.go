package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Run a one-shot command on the remote host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connectClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		command, err := client.StartCommand(args[0])
		if err != nil {
			return err
		}

		stdout, stderr, rc, err := command.ReadOutputs()
		if err != nil {
			return err
		}

		fmt.Fprint(os.Stdout, stdout)
		fmt.Fprint(os.Stderr, stderr)
		if rc != 0 {
			return fmt.Errorf("command exited with status %d", rc)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
