package domain

import "time"

// Audit carries the bookkeeping timestamps shared by every catalog entity.
type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsDeleted reports whether the entity has been soft-deleted.
func (a Audit) IsDeleted() bool {
	return a.DeletedAt != nil
}

// MarkCreated stamps a freshly built entity.
func MarkCreated(a *Audit, now time.Time) {
	now = now.UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
}

// MarkUpdated records a mutation.
func MarkUpdated(a *Audit, now time.Time) {
	a.UpdatedAt = now.UTC()
}

// MarkDeleted soft-deletes the entity. Deleting twice keeps the first
// timestamp.
func MarkDeleted(a *Audit, now time.Time) {
	if a.DeletedAt != nil {
		return
	}
	now = now.UTC()
	a.DeletedAt = &now
	a.UpdatedAt = now
}
