package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/remotekit/sshkit/pkg/config"
	"github.com/remotekit/sshkit/pkg/logger"
	"github.com/remotekit/sshkit/pkg/sshclient"
)

var (
	cfgFile     string
	backendName string
	host        string
	port        int
	user        string
	password    string
	keyfile     string
	passphrase  string
	waitReady   time.Duration
	verboseMode bool

	// termWidth/termHeight override the configured PTY geometry when the
	// local terminal size is known.
	termWidth  int
	termHeight int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sshkit",
	Short: "sshkit is a remote-access client for SSH, remote commands and SFTP",
	Long: `sshkit connects to remote hosts over SSH and drives them through a
single backend-agnostic client: one-shot commands, interactive shells,
and SFTP file transfer.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sshkit.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "native", "client backend to use")
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "", "remote host")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", config.DefaultPort, "remote SSH port")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", "", "remote username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "password for password auth")
	rootCmd.PersistentFlags().StringVarP(&keyfile, "keyfile", "i", "", "private key file for public-key auth")
	rootCmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "passphrase for the private key")
	rootCmd.PersistentFlags().DurationVar(&waitReady, "wait", 0, "wait up to this long for the host to accept connections")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "enable debug logging")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".sshkit")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("SSHKIT")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	logCfg := logger.FromViper()
	if verboseMode {
		logCfg.Level = "debug"
	}
	if err := logger.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
	}
}

func clientConfig() (*config.ClientConfig, error) {
	cfg := config.NewClientConfig(host, port, user)
	if cfg.Host == "" {
		cfg.Host = viper.GetString("client.host")
	}
	if cfg.User == "" {
		cfg.User = viper.GetString("client.user")
	}
	if enc := viper.GetString("client.encoding"); enc != "" {
		cfg.Encoding = enc
	}
	if tt := viper.GetString("client.term_type"); tt != "" {
		cfg.TermType = tt
	}
	if termWidth > 0 && termHeight > 0 {
		cfg.TermWidth = termWidth
		cfg.TermHeight = termHeight
	}
	return cfg, cfg.Validate()
}

// connectClient builds, connects and authenticates a client from the
// command-line flags.
func connectClient(cmd *cobra.Command) (sshclient.Client, error) {
	cfg, err := clientConfig()
	if err != nil {
		return nil, err
	}

	if waitReady > 0 {
		if err := sshclient.WaitForSSH(cmd.Context(), cfg, waitReady); err != nil {
			return nil, err
		}
	}

	client, err := sshclient.New(backendName, cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(); err != nil {
		return nil, err
	}

	if keyfile != "" {
		err = client.AuthenticateWithKey(cfg.User, keyfile, passphrase)
	} else {
		err = client.Authenticate(cfg.User, password)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}
