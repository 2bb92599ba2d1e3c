package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// shellPollInterval paces the output poll loop; shell reads never block, so
// the loop sleeps between drains.
const shellPollInterval = 20 * time.Millisecond

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open an interactive shell on the remote host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			if w, h, err := term.GetSize(fd); err == nil {
				termWidth, termHeight = w, h
			}
		}

		client, err := connectClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		if term.IsTerminal(fd) {
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				return fmt.Errorf("failed to put terminal in raw mode: %w", err)
			}
			defer term.Restore(fd, oldState)
		}

		if err := client.OpenShell(); err != nil {
			return err
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			buf := make([]byte, 1024)
			for {
				n, err := os.Stdin.Read(buf)
				if n > 0 {
					if werr := client.Write(string(buf[:n])); werr != nil {
						return
					}
				}
				if err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(shellPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-cmd.Context().Done():
				return nil
			case <-ticker.C:
				out, err := client.Read()
				if err != nil {
					return err
				}
				if out != "" {
					io.WriteString(os.Stdout, out)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
