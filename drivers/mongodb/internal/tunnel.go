package driver

import (
	"context"
	"fmt"
	"net"

	"github.com/datazip-inc/olake-mongo/utils"
	"golang.org/x/crypto/ssh"
)

// sshDialer routes every connection of the mongo client through the bastion
type sshDialer struct {
	client *ssh.Client
}

func (d *sshDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	if d.client == nil {
		return nil, fmt.Errorf("SSH client is not initialized")
	}
	conn, err := d.client.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s through bastion: %s", address, err)
	}
	return &utils.NoDeadlineConn{Conn: conn}, nil
}
