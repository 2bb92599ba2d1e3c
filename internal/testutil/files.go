package testutil

import (
	"os"

	"github.com/remotekit/sshkit/internal/testdata"
)

// CreateSSHKeyPairOnDisk writes the embedded dummy keypair to temp files and
// returns the public path, private path, and a cleanup func.
func CreateSSHKeyPairOnDisk() (string, string, func()) {
	publicKeyPath, cleanupPublic, err := WriteStringToTempFile(testdata.TestPublicSSHKeyMaterial)
	if err != nil {
		panic(err)
	}
	privateKeyPath, cleanupPrivate, err := WriteStringToTempFile(testdata.TestPrivateSSHKeyMaterial)
	if err != nil {
		cleanupPublic()
		panic(err)
	}
	return publicKeyPath, privateKeyPath, func() {
		cleanupPublic()
		cleanupPrivate()
	}
}

// WriteStringToTempFile writes content to a fresh temp file and returns its
// path plus a cleanup func.
func WriteStringToTempFile(content string) (string, func(), error) {
	tempFile, err := os.CreateTemp("", "sshkit-test-*")
	if err != nil {
		return "", nil, err
	}

	if _, err := tempFile.WriteString(content); err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return "", nil, err
	}
	tempFile.Close()

	return tempFile.Name(), func() { os.Remove(tempFile.Name()) }, nil
}
