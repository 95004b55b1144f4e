// Package imap publishes assembled messages as drafts on a mail
// server: it opens an authenticated session, locates the drafts
// folder, and appends messages with the draft flag set.
package imap

import (
	"context"
	"fmt"
	"strconv"

	"github.com/emersion/go-imap/v2/imapclient"
)

// Client holds the connection settings for an IMAP server.
type Client struct {
	host     string
	port     int
	username string
	password string
	tls      bool
}

// NewClient creates a new IMAP client configuration. With tls set the
// connection uses implicit TLS; otherwise STARTTLS.
func NewClient(host string, port int, username, password string, tls bool) *Client {
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client.
func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + strconv.Itoa(c.port)

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{Username: c.username, Err: err}
	}

	return client, nil
}

// OpenSession connects and authenticates, returning a Session that is
// reused for every draft in a run. The caller must Close it.
func (c *Client) OpenSession(ctx context.Context) (*Session, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening IMAP session: %w", err)
	}
	return &Session{client: client}, nil
}
