package utils

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	StrictHostKeyVerification   = "strict"
	InsecureHostKeyVerification = "insecure"
)

// SSHConfig describes a bastion host the source is reached through
type SSHConfig struct {
	Host                    string `json:"host" validate:"required" jsonschema:"title=SSH Host"`
	Port                    int    `json:"port" validate:"required,min=1,max=65535" jsonschema:"title=SSH Port,default=22"`
	Username                string `json:"username" validate:"required" jsonschema:"title=SSH Username"`
	PrivateKey              string `json:"private_key,omitempty" validate:"required_without=Password" jsonschema:"title=Private Key"`
	Passphrase              string `json:"passphrase,omitempty" jsonschema:"title=Private Key Passphrase,format=password"`
	Password                string `json:"password,omitempty" jsonschema:"title=SSH Password,format=password"`
	HostKeyVerificationMode string `json:"host_key_verification_mode,omitempty" validate:"omitempty,oneof=strict insecure" jsonschema:"enum=strict,enum=insecure"`
	KnownHostsFilePath      string `json:"known_hosts_file_path,omitempty" validate:"required_if=HostKeyVerificationMode strict"`
}

func (c *SSHConfig) Validate() error {
	if err := Validate(c); err != nil {
		return err
	}
	if c.HostKeyVerificationMode == "" {
		c.HostKeyVerificationMode = InsecureHostKeyVerification
	}
	return nil
}

func (c *SSHConfig) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.HostKeyVerificationMode == StrictHostKeyVerification {
		callback, err := knownhosts.New(c.KnownHostsFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts file: %s", err)
		}
		return callback, nil
	}
	return ssh.InsecureIgnoreHostKey(), nil // #nosec G106
}

func (c *SSHConfig) authMethods() ([]ssh.AuthMethod, error) {
	methods := []ssh.AuthMethod{}
	if c.Password != "" {
		methods = append(methods, ssh.Password(c.Password))
	}
	if c.PrivateKey != "" {
		signer, err := ParsePrivateKey(c.PrivateKey, c.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH private key: %s", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	return methods, nil
}

// SetupSSHConnection opens the client connection to the bastion
func (c *SSHConfig) SetupSSHConnection() (*ssh.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate ssh config: %s", err)
	}
	auth, err := c.authMethods()
	if err != nil {
		return nil, err
	}
	callback, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), &ssh.ClientConfig{
		User:            c.Username,
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("ssh dial bastion: %s", err)
	}
	return client, nil
}

// ParsePrivateKey parses a private key from a PEM string
func ParsePrivateKey(pemText, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase([]byte(pemText), []byte(passphrase))
	}

	signer, err := ssh.ParsePrivateKey([]byte(pemText))
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return nil, fmt.Errorf("SSH private key appears encrypted, enter the passphrase")
	}
	return signer, err
}

// NoDeadlineConn ignores deadlines, which connections tunneled through crypto/ssh do not support.
// The mongo driver sets them unconditionally and relies on contexts for timeouts anyway.
type NoDeadlineConn struct {
	net.Conn
}

func (c *NoDeadlineConn) SetDeadline(_ time.Time) error {
	return nil
}

func (c *NoDeadlineConn) SetReadDeadline(_ time.Time) error {
	return nil
}

func (c *NoDeadlineConn) SetWriteDeadline(_ time.Time) error {
	return nil
}
