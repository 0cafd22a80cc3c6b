package presence

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	pkglog "github.com/SamadritaSarkar339/monstac/pkg/log"
)

var (
	ErrEmptyUserID       = errors.New("presence join requires a user id")
	ErrUnknownConnection = errors.New("connection has not joined presence")
)

// Broadcaster delivers a message to every live connection.
type Broadcaster interface {
	BroadcastAll(message interface{}) error
}

// SnapshotSink receives a copy of every published presence snapshot, for
// collaborators outside the websocket fan-out.
type SnapshotSink interface {
	PresenceSnapshot(members []domain.PresenceRecord)
}

// Registry is the in-memory presence state of the shared office, keyed by
// connection ID. Every mutation publishes a full snapshot to all
// connections; there are no incremental diffs.
type Registry struct {
	mu        sync.Mutex
	records   map[string]*domain.PresenceRecord
	broadcast Broadcaster
	sink      SnapshotSink
	now       func() time.Time
}

// NewRegistry creates a presence registry fanning out through b. sink may
// be nil.
func NewRegistry(b Broadcaster, sink SnapshotSink) *Registry {
	return &Registry{
		records:   make(map[string]*domain.PresenceRecord),
		broadcast: b,
		sink:      sink,
		now:       time.Now,
	}
}

// Join records a connection in the office and publishes a snapshot.
// Joining again from the same connection overwrites the previous record.
func (r *Registry) Join(connectionID string, p domain.PresenceJoinPayload) (domain.PresenceRecord, error) {
	if p.UserID == "" {
		return domain.PresenceRecord{}, ErrEmptyUserID
	}

	status := p.Status
	if !validStatus(status) {
		status = domain.PresenceAvailable
	}
	mood := p.Mood
	if mood == "" {
		mood = domain.DefaultMood
	}

	r.mu.Lock()
	now := r.now()
	rec := &domain.PresenceRecord{
		ConnectionID: connectionID,
		UserID:       p.UserID,
		Name:         p.Name,
		Status:       status,
		Mood:         mood,
		JoinedAt:     now,
		UpdatedAt:    now,
	}
	r.records[connectionID] = rec
	joined := *rec
	members := r.publishLocked()
	r.mu.Unlock()

	r.notifySink(members)

	pkglog.L().Info().
		Str(pkglog.FieldConnectionID, connectionID).
		Str(pkglog.FieldUserID, p.UserID).
		Msg("presence join")

	return joined, nil
}

// Update merges status and/or mood into an existing record and publishes
// a snapshot. Fields left nil are untouched.
func (r *Registry) Update(connectionID string, p domain.PresenceUpdatePayload) (domain.PresenceRecord, error) {
	r.mu.Lock()
	rec, ok := r.records[connectionID]
	if !ok {
		r.mu.Unlock()
		return domain.PresenceRecord{}, ErrUnknownConnection
	}

	if p.Status != nil && validStatus(*p.Status) {
		rec.Status = *p.Status
	}
	if p.Mood != nil {
		rec.Mood = *p.Mood
	}
	rec.UpdatedAt = r.now()
	updated := *rec
	members := r.publishLocked()
	r.mu.Unlock()

	r.notifySink(members)

	return updated, nil
}

// Remove drops a connection from the office and publishes a snapshot.
// Removing a connection that never joined is a no-op and publishes
// nothing.
func (r *Registry) Remove(connectionID string) {
	r.mu.Lock()
	if _, ok := r.records[connectionID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.records, connectionID)
	members := r.publishLocked()
	r.mu.Unlock()

	r.notifySink(members)

	pkglog.L().Info().Str(pkglog.FieldConnectionID, connectionID).Msg("presence leave")
}

// Snapshot returns the current members ordered by join time.
func (r *Registry) Snapshot() []domain.PresenceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []domain.PresenceRecord {
	members := make([]domain.PresenceRecord, 0, len(r.records))
	for _, rec := range r.records {
		members = append(members, *rec)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].ConnectionID < members[j].ConnectionID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members
}

// publishLocked broadcasts the snapshot while still holding the lock so
// two concurrent mutations cannot deliver snapshots out of order. The
// broadcast never blocks; it returns the snapshot for the sink.
func (r *Registry) publishLocked() []domain.PresenceRecord {
	members := r.snapshotLocked()
	if r.broadcast != nil {
		r.broadcast.BroadcastAll(&domain.PresenceListMessage{
			Type:    domain.EventPresenceList,
			Members: members,
		})
	}
	return members
}

// notifySink runs outside the lock: the sink may hit the event bus and a
// slow bus must not stall presence mutations.
func (r *Registry) notifySink(members []domain.PresenceRecord) {
	if r.sink != nil {
		r.sink.PresenceSnapshot(members)
	}
}

func validStatus(status string) bool {
	switch status {
	case domain.PresenceAvailable, domain.PresenceFocus, domain.PresenceBusy, domain.PresenceAway:
		return true
	}
	return false
}
