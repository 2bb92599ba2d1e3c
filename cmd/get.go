package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <remote-path> <local-path>",
	Short: "Download a file from the remote host over SFTP",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remotePath, localPath := args[0], args[1]

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
		s.Suffix = fmt.Sprintf(" downloading %s", remotePath)
		s.Start()
		err = session.DownloadFile(remotePath, localPath)
		s.Stop()
		if err != nil {
			return err
		}

		fmt.Printf("downloaded %s -> %s\n", remotePath, localPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
