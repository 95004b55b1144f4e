package imap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// draftFlags marks appended messages as unsent, already-read drafts.
var draftFlags = []imap.Flag{imap.FlagDraft, imap.FlagSeen}

// Session is an authenticated IMAP connection, opened once per run and
// used sequentially for every draft.
type Session struct {
	client *imapclient.Client
}

// Close logs out and releases the connection.
func (s *Session) Close() error {
	return s.client.Logout().Wait()
}

// ListFolders returns the names of all mailboxes on the server.
func (s *Session) ListFolders() ([]string, error) {
	boxes, err := s.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	names := make([]string, 0, len(boxes))
	for _, box := range boxes {
		names = append(names, box.Mailbox)
	}
	return names, nil
}

// FindDraftsFolder locates the drafts mailbox: first a case-insensitive
// exact match against the candidate list, then the first folder whose
// name contains "draft". Folder naming is locale-dependent, so the
// candidate list comes from configuration.
func (s *Session) FindDraftsFolder(candidates []string) (string, error) {
	names, err := s.ListFolders()
	if err != nil {
		return "", err
	}

	folder := pickDraftsFolder(names, candidates)
	if folder == "" {
		return "", &FolderNotFoundError{Candidates: candidates}
	}
	return folder, nil
}

func pickDraftsFolder(names, candidates []string) string {
	for _, candidate := range candidates {
		for _, name := range names {
			if strings.EqualFold(name, candidate) {
				return name
			}
		}
	}
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), "draft") {
			return name
		}
	}
	return ""
}

// AppendDraft stores a complete message in the given folder with the
// draft flags set and the current time as the internal date.
func (s *Session) AppendDraft(_ context.Context, folder string, message []byte) error {
	cmd := s.client.Append(folder, int64(len(message)), &imap.AppendOptions{
		Flags: draftFlags,
		Time:  time.Now(),
	})

	if _, err := cmd.Write(message); err != nil {
		_ = cmd.Close()
		return fmt.Errorf("writing draft to %s: %w", folder, err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("finishing draft append to %s: %w", folder, err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("appending draft to %s: %w", folder, err)
	}
	return nil
}
