package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
)

// SessionLink is the handshake surface the link service wraps.
// Satisfied by *link.Link.
type SessionLink interface {
	Login(ctx context.Context) (*session.Session, error)
	Restore(ctx context.Context) (*session.Session, error)
	Logout(ctx context.Context, sess *session.Session) error
}

// LinkService adds journaling to the session lifecycle. Login, restore,
// and logout pass through unchanged; the ones that succeed leave a
// journal entry behind, so the journal answers "when did something gain
// access to my keys".
type LinkService struct {
	link    SessionLink
	journal EntryRecorder
	logger  *slog.Logger
}

// NewLinkService creates a link service. journal may be nil when
// journaling is disabled.
func NewLinkService(link SessionLink, journal EntryRecorder, logger *slog.Logger) *LinkService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkService{
		link:    link,
		journal: journal,
		logger:  logger,
	}
}

// Login runs an interactive login and journals the established session.
func (s *LinkService) Login(ctx context.Context) (*session.Session, error) {
	sess, err := s.link.Login(ctx)
	if err != nil {
		return nil, err
	}
	s.record(newSessionEntry(journal.EventLogin, sess))
	return sess, nil
}

// Restore revives the persisted session, if any. A revived session is
// journaled; (nil, nil) passes through silently.
func (s *LinkService) Restore(ctx context.Context) (*session.Session, error) {
	sess, err := s.link.Restore(ctx)
	if err != nil || sess == nil {
		return sess, err
	}
	s.record(newSessionEntry(journal.EventRestore, sess))
	return sess, nil
}

// Logout ends the session and journals the logout. The entry is written
// only when the record deletion went through, since that is the moment
// the user is actually logged out.
func (s *LinkService) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return s.link.Logout(ctx, sess)
	}
	entry := newSessionEntry(journal.EventLogout, sess)
	if err := s.link.Logout(ctx, sess); err != nil {
		return err
	}
	s.record(entry)
	return nil
}

func (s *LinkService) record(entry journal.Entry) {
	if s.journal == nil {
		return
	}
	s.journal.Record(entry)
}

// newSessionEntry seeds a journal entry with the session's identity.
func newSessionEntry(event string, sess GateSession) journal.Entry {
	return journal.Entry{
		Timestamp: time.Now().UTC(),
		ID:        uuid.NewString(),
		Event:     event,
		Account:   sess.Account(),
		ChainID:   sess.ChainID(),
		Wallet:    sess.Wallet(),
	}
}
