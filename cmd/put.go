package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/remotekit/sshkit/pkg/config"
)

var putMode string

var putCmd = &cobra.Command{
	Use:   "put <local-path> <remote-path>",
	Short: "Upload a file to the remote host over SFTP",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		localPath, remotePath := args[0], args[1]

		mode := config.DefaultFileMode
		if putMode != "" {
			parsed, err := strconv.ParseUint(putMode, 8, 32)
			if err != nil {
				return fmt.Errorf("invalid file mode %q: %w", putMode, err)
			}
			mode = os.FileMode(parsed)
		}

		client, err := connectClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		session, err := client.NewSFTP()
		if err != nil {
			return err
		}
		defer session.Close()

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = fmt.Sprintf(" uploading %s", localPath)
		s.Start()
		err = session.UploadFile(localPath, remotePath, mode)
		s.Stop()
		if err != nil {
			return err
		}

		fmt.Printf("uploaded %s -> %s\n", localPath, remotePath)
		return nil
	},
}

func init() {
	putCmd.Flags().StringVar(&putMode, "mode", "", "octal permission mode for the remote file (default 644)")
	rootCmd.AddCommand(putCmd)
}
