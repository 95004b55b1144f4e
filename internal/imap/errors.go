package imap

import (
	"errors"
	"fmt"
	"strings"
)

// ConnectionError indicates that the IMAP server could not be reached.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to IMAP %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError indicates that IMAP authentication failed.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FolderNotFoundError indicates that no drafts folder could be located
// among the server's mailboxes.
type FolderNotFoundError struct {
	Candidates []string
}

func (e *FolderNotFoundError) Error() string {
	return fmt.Sprintf(
		"no drafts folder found (tried %s and substring match on \"draft\")",
		strings.Join(e.Candidates, ", "),
	)
}

// IsConnectionError reports whether err (or any error in its chain) is
// a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
