package sandbox

import (
	"strings"
	"sync"
	"time"

	"tmsops/core/tms"

	"github.com/google/uuid"
)

// Store is the sandbox's in-memory account state. All access is
// serialized; the sandbox trades throughput for predictable rehearsals.
type Store struct {
	mu sync.Mutex

	projects []tms.Project
	keys     map[string][]tms.Key  // project ID -> keys
	users    map[string][]tms.User // project ID -> users
	links    map[string][]string   // parent key ID -> child key IDs
	entities map[string][]string   // entity kind -> names, for 409 checks
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		keys:     make(map[string][]tms.Key),
		users:    make(map[string][]tms.User),
		links:    make(map[string][]string),
		entities: make(map[string][]string),
	}
}

// AddProject registers a project and returns it.
func (s *Store) AddProject(name string) tms.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := tms.Project{ID: uuid.NewString(), Name: name}
	s.projects = append(s.projects, p)
	return p
}

// Projects returns one page of projects.
func (s *Store) Projects(page, perPage int) []tms.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pageOf(s.projects, page, perPage)
}

// AddKey registers a key in a project.
func (s *Store) AddKey(projectID, name string) tms.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := tms.Key{ID: uuid.NewString(), Name: name}
	s.keys[projectID] = append(s.keys[projectID], k)
	return k
}

// Keys returns one page of a project's keys, optionally narrowed by a
// "name:a,b,c" filter, plus the total page count for the filtered set.
func (s *Store) Keys(projectID string, page, perPage int, query string) ([]tms.Key, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.keys[projectID]
	if names, ok := parseNameFilter(query); ok {
		filtered := make([]tms.Key, 0, len(keys))
		for _, k := range keys {
			if _, want := names[k.Name]; want {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}

	return pageOf(keys, page, perPage), totalPages(len(keys), perPage)
}

// AddUser registers a project user with the given creation time.
func (s *Store) AddUser(projectID, username string, createdAt time.Time) tms.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := tms.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: createdAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	s.users[projectID] = append(s.users[projectID], u)
	return u
}

// Users returns one page of a project's users.
func (s *Store) Users(projectID string, page, perPage int) []tms.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pageOf(s.users[projectID], page, perPage)
}

// RemoveUser deletes a user from a project. False when absent.
func (s *Store) RemoveUser(projectID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.users[projectID]
	for i, u := range users {
		if u.ID == userID {
			s.users[projectID] = append(users[:i], users[i+1:]...)
			return true
		}
	}
	return false
}

// Links returns the child key IDs linked to a parent key. False when
// the key has no link record at all (the API's 400 case).
func (s *Store) Links(parentKeyID string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	children, ok := s.links[parentKeyID]
	return children, ok
}

// Link attaches child keys to a parent key. A child already linked to
// any parent is a conflict.
func (s *Store) Link(parentKeyID string, childIDs []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, children := range s.links {
		for _, existing := range children {
			for _, id := range childIDs {
				if id == existing {
					return false
				}
			}
		}
	}

	s.links[parentKeyID] = append(s.links[parentKeyID], childIDs...)
	return true
}

// CreateEntity records a named entity of the given kind. A duplicate
// name within a kind is a conflict.
func (s *Store) CreateEntity(kind, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entities[kind] {
		if existing == name {
			return false
		}
	}
	s.entities[kind] = append(s.entities[kind], name)
	return true
}

func pageOf[T any](items []T, page, perPage int) []T {
	if page < 1 || perPage < 1 {
		return nil
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

func totalPages(count, perPage int) int {
	if perPage < 1 {
		return 0
	}
	return (count + perPage - 1) / perPage
}

// parseNameFilter understands the "name:a,b,c" q syntax.
func parseNameFilter(query string) (map[string]struct{}, bool) {
	if !strings.HasPrefix(query, "name:") {
		return nil, false
	}
	names := make(map[string]struct{})
	for _, name := range strings.Split(strings.TrimPrefix(query, "name:"), ",") {
		if name != "" {
			names[name] = struct{}{}
		}
	}
	return names, true
}
