package imap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPickDraftsFolder(t *testing.T) {
	t.Parallel()

	candidates := []string{"Drafts", "INBOX.Drafts", "Brouillons"}

	t.Run("exact candidate match wins", func(t *testing.T) {
		t.Parallel()

		folder := pickDraftsFolder(
			[]string{"INBOX", "Sent", "Drafts", "Draft Ideas"},
			candidates,
		)
		require.Equal(t, "Drafts", folder)
	})

	t.Run("candidate match is case-insensitive", func(t *testing.T) {
		t.Parallel()

		folder := pickDraftsFolder(
			[]string{"INBOX", "DRAFTS"},
			candidates,
		)
		require.Equal(t, "DRAFTS", folder)
	})

	t.Run("candidate order decides between matches", func(t *testing.T) {
		t.Parallel()

		folder := pickDraftsFolder(
			[]string{"INBOX.Drafts", "Drafts"},
			candidates,
		)
		require.Equal(t, "Drafts", folder)
	})

	t.Run("falls back to substring match", func(t *testing.T) {
		t.Parallel()

		folder := pickDraftsFolder(
			[]string{"INBOX", "Sent", "My Draft Box"},
			candidates,
		)
		require.Equal(t, "My Draft Box", folder)
	})

	t.Run("localized candidate", func(t *testing.T) {
		t.Parallel()

		folder := pickDraftsFolder(
			[]string{"INBOX", "brouillons"},
			candidates,
		)
		require.Equal(t, "brouillons", folder)
	})

	t.Run("nothing matches", func(t *testing.T) {
		t.Parallel()

		folder := pickDraftsFolder([]string{"INBOX", "Sent"}, candidates)
		require.Empty(t, folder)
	})
}

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	connErr := &ConnectionError{Addr: "mail.example.com:993"}
	require.True(t, IsConnectionError(connErr))
	require.False(t, IsAuthError(connErr))

	authErr := &AuthError{Username: "user@example.com"}
	require.True(t, IsAuthError(authErr))
	require.False(t, IsConnectionError(authErr))

	nfErr := &FolderNotFoundError{Candidates: []string{"Drafts"}}
	require.Contains(t, nfErr.Error(), "Drafts")
	require.Contains(t, nfErr.Error(), "draft")
}
