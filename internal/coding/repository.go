package coding

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrProjectNotFound is returned when no project has the requested id.
	ErrProjectNotFound = errors.New("project not found")

	// ErrStreamNotFound is returned when a project has no stream with the
	// requested id.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrStreamLocked is returned when attempting to create or delete a
	// segment on a locked stream.
	ErrStreamLocked = errors.New("stream is locked")

	// ErrSegmentNotFound is returned when no segment has the requested id.
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrSubtitleNotFound is returned when no subtitle has the requested id.
	ErrSubtitleNotFound = errors.New("subtitle not found")

	// ErrLastStream is returned when attempting to delete a project's only
	// stream; at least one stream must exist at all times.
	ErrLastStream = errors.New("cannot delete the last stream")

	// ErrInvalidInterval is returned for a segment that violates
	// 0 <= start < end.
	ErrInvalidInterval = errors.New("invalid segment interval")

	// ErrNothingToUndo and ErrNothingToRedo report an exhausted history stack.
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// ProjectRepository is a concurrency-safe repository of projects layered over
// a Store. The project list is held in memory and written back to the store
// wholesale after every change, so the store always holds the full current
// state.
type ProjectRepository struct {
	mu       sync.RWMutex
	store    Store
	projects []Project
}

// NewProjectRepository loads the project list from store and returns a
// repository over it.
func NewProjectRepository(store Store) (*ProjectRepository, error) {
	projects, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	return &ProjectRepository{store: store, projects: projects}, nil
}

// List returns copies of all projects in insertion order.
func (r *ProjectRepository) List() []Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneProjects(r.projects)
}

// Get returns a copy of the project with the given id.
func (r *ProjectRepository) Get(id ProjectID) (Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.projects {
		if r.projects[i].ID == id {
			return r.projects[i].Clone(), nil
		}
	}
	return Project{}, ErrProjectNotFound
}

// Put inserts the project or replaces an existing one with the same id,
// stamping LastModified, then persists the whole list.
func (r *ProjectRepository) Put(p Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p = p.Clone()
	p.LastModified = time.Now().UnixMilli()
	replaced := false
	for i := range r.projects {
		if r.projects[i].ID == p.ID {
			r.projects[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		r.projects = append(r.projects, p)
	}
	return r.persistLocked()
}

// Update applies mutate to a deep copy of the project and replaces the
// stored value with the result, stamping LastModified. If mutate returns an
// error, the stored project is left untouched. The mutated copy is returned.
func (r *ProjectRepository) Update(id ProjectID, mutate func(*Project) error) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.projects {
		if r.projects[i].ID != id {
			continue
		}
		next := r.projects[i].Clone()
		if err := mutate(&next); err != nil {
			return Project{}, err
		}
		next.LastModified = time.Now().UnixMilli()
		r.projects[i] = next
		if err := r.persistLocked(); err != nil {
			return Project{}, err
		}
		return next.Clone(), nil
	}
	return Project{}, ErrProjectNotFound
}

// Delete removes the project with the given id and persists the list.
func (r *ProjectRepository) Delete(id ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.projects {
		if r.projects[i].ID == id {
			r.projects = append(r.projects[:i], r.projects[i+1:]...)
			return r.persistLocked()
		}
	}
	return ErrProjectNotFound
}

// Count returns the number of stored projects. Used for metrics.
func (r *ProjectRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}

// LastActive returns the tracked last-active project id, which may be empty.
func (r *ProjectRepository) LastActive() (ProjectID, error) {
	return r.store.LoadLastActive()
}

// SetLastActive records the last-active project id.
func (r *ProjectRepository) SetLastActive(id ProjectID) error {
	return r.store.SaveLastActive(id)
}

// persistLocked writes the full project list to the store.
// Caller must hold r.mu in write mode.
func (r *ProjectRepository) persistLocked() error {
	if err := r.store.Save(r.projects); err != nil {
		return fmt.Errorf("save projects: %w", err)
	}
	return nil
}
