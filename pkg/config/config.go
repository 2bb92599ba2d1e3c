package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Permission modes applied by the SFTP session when the caller does not
// request anything more specific. Directories created while filling in a
// missing remote path get DefaultDirMode; newly created remote files get
// DefaultFileMode.
const (
	DefaultDirMode  os.FileMode = 0o744
	DefaultFileMode os.FileMode = 0o644
)

const (
	DefaultPort        = 22
	DefaultTermType    = "vt100"
	DefaultTermWidth   = 80
	DefaultTermHeight  = 24
	DefaultEncoding    = "utf-8"
	DefaultDialTimeout = 10 * time.Second
)

// ClientConfig carries everything a client needs to reach and talk to one
// remote host: address, terminal geometry for interactive shells, and the
// text encoding used when decoding remote output.
type ClientConfig struct {
	Host        string        `yaml:"host"         mapstructure:"host"`
	Port        int           `yaml:"port"         mapstructure:"port"`
	User        string        `yaml:"user"         mapstructure:"user"`
	Encoding    string        `yaml:"encoding"     mapstructure:"encoding"`
	TermType    string        `yaml:"term_type"    mapstructure:"term_type"`
	TermWidth   int           `yaml:"term_width"   mapstructure:"term_width"`
	TermHeight  int           `yaml:"term_height"  mapstructure:"term_height"`
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// NewClientConfig returns a ClientConfig for host:port with the defaults
// filled in.
func NewClientConfig(host string, port int, user string) *ClientConfig {
	cfg := &ClientConfig{
		Host: host,
		Port: port,
		User: user,
	}
	cfg.applyDefaults()
	return cfg
}

// FromViper builds a ClientConfig from the standard viper keys
// (client.host, client.port, ...).
func FromViper(v *viper.Viper) (*ClientConfig, error) {
	cfg := &ClientConfig{}
	sub := v.Sub("client")
	if sub == nil {
		return nil, fmt.Errorf("no client section in config")
	}
	if err := sub.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// Validate checks the fields a connection cannot proceed without.
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Port)
	}
	return nil
}

// Address returns the host:port dial target.
func (c *ClientConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *ClientConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Encoding == "" {
		c.Encoding = DefaultEncoding
	}
	if c.TermType == "" {
		c.TermType = DefaultTermType
	}
	if c.TermWidth == 0 {
		c.TermWidth = DefaultTermWidth
	}
	if c.TermHeight == 0 {
		c.TermHeight = DefaultTermHeight
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
}
