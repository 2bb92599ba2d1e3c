package sshclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remotekit/sshkit/pkg/config"
)

func TestNativeBackendRegistered(t *testing.T) {
	assert.Contains(t, Backends(), "native")

	client, err := New("native", config.NewClientConfig("example.com", 22, "deploy"))
	require.NoError(t, err)
	assert.IsType(t, &NativeClient{}, client)
}

func TestUnknownBackend(t *testing.T) {
	_, err := New("telnet", config.NewClientConfig("example.com", 22, "deploy"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "telnet")
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	Register("dup-backend", func(cfg *config.ClientConfig) Client { return &MockClient{} })
	assert.Panics(t, func() {
		Register("dup-backend", func(cfg *config.ClientConfig) Client { return &MockClient{} })
	})
}
