// Package state persists session records in a sessions.json file.
//
// The file holds every session the link flow has established, so a later
// process can restore one without going through wallet approval again.
// Records carry no key material. Writes are atomic (write-tmp-then-rename)
// behind a cross-process flock, with a .bak copy of the previous contents
// kept beside the file.
package state

import (
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
)

// fileVersion is the sessions.json schema version.
const fileVersion = "1"

// sessionsFile is the top-level structure persisted in sessions.json.
type sessionsFile struct {
	// Version is the schema version for forward compatibility. Currently "1".
	Version string `json:"version"`

	// Sessions are the persisted session records, in insertion order.
	Sessions []*session.Record `json:"sessions"`

	// UpdatedAt is when this file was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

func emptyFile() *sessionsFile {
	return &sessionsFile{
		Version:  fileVersion,
		Sessions: []*session.Record{},
	}
}
