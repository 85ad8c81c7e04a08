package coding

// Store is the persistence abstraction for the project list. The whole list
// is loaded and saved wholesale; the last-active project id is tracked
// separately. Implementations can be in-memory or durable; the Repository
// uses Store for all reads and writes, and its callers never see which one.
type Store interface {
	Load() ([]Project, error)
	Save([]Project) error
	LoadLastActive() (ProjectID, error)
	SaveLastActive(ProjectID) error
}

// InMemoryStore is an in-memory implementation of Store. Saved projects are
// deep-copied so later mutation of the caller's values cannot leak in.
type InMemoryStore struct {
	projects   []Project
	lastActive ProjectID
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Load implements Store.Load.
func (s *InMemoryStore) Load() ([]Project, error) {
	return cloneProjects(s.projects), nil
}

// Save implements Store.Save.
func (s *InMemoryStore) Save(projects []Project) error {
	s.projects = cloneProjects(projects)
	return nil
}

// LoadLastActive implements Store.LoadLastActive.
func (s *InMemoryStore) LoadLastActive() (ProjectID, error) {
	return s.lastActive, nil
}

// SaveLastActive implements Store.SaveLastActive.
func (s *InMemoryStore) SaveLastActive(id ProjectID) error {
	s.lastActive = id
	return nil
}

func cloneProjects(projects []Project) []Project {
	out := make([]Project, len(projects))
	for i, p := range projects {
		out[i] = p.Clone()
	}
	return out
}
