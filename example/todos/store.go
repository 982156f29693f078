package todos

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// Status represents the completion status of a todo.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Tag represents a category tag for todos.
type Tag string

const (
	TagWork     Tag = "work"
	TagPersonal Tag = "personal"
	TagUrgent   Tag = "urgent"
)

// Todo represents a single todo item.
type Todo struct {
	ID          string
	Title       string
	Description string
	Status      Status
	Tags        []Tag
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Done reports whether the todo is completed.
func (t Todo) Done() bool { return t.Status == StatusCompleted }

// Stats summarises the store.
type Stats struct {
	Total     int
	Completed int
	Pending   int
}

// Store is an in-memory todo store.
type Store struct {
	mu     sync.RWMutex
	todos  map[string]*Todo
	nextID int
	clock  func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		todos:  make(map[string]*Todo),
		nextID: 1,
		clock:  time.Now,
	}
}

// Seed adds sample todos.
func (s *Store) Seed() *Store {
	s.Add("Buy groceries", "Milk, eggs, bread", TagPersonal)
	s.Add("Review PR #123", "Check the authentication changes", TagWork, TagUrgent)
	s.Add("Write documentation", "Update API docs for v2", TagWork)
	return s
}

// Add creates a new todo and returns it.
func (s *Store) Add(title, description string, tags ...Tag) *Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("todo-%d", s.nextID)
	s.nextID++

	now := s.clock()
	t := &Todo{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      StatusPending,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.todos[id] = t
	return t
}

// Get returns a copy of a todo by ID.
func (s *Store) Get(id string) (Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.todos[id]
	if !ok {
		return Todo{}, false
	}
	return *t, true
}

// Rename updates a todo's title.
func (s *Store) Rename(id, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return false
	}
	t.Title = title
	t.UpdatedAt = s.clock()
	return true
}

// Toggle toggles the completed status of a todo.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return false
	}
	if t.Status == StatusCompleted {
		t.Status = StatusPending
	} else {
		t.Status = StatusCompleted
	}
	t.UpdatedAt = s.clock()
	return true
}

// Delete removes a todo by ID.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[id]; !ok {
		return false
	}
	delete(s.todos, id)
	return true
}

// List returns todos oldest first, optionally filtered by status and tag.
func (s *Store) List(status Status, tag Tag) []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Todo
	for _, t := range s.todos {
		if status != "" && t.Status != status {
			continue
		}
		if tag != "" && !slices.Contains(t.Tags, tag) {
			continue
		}
		out = append(out, *t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Stats returns statistics about the todos.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, t := range s.todos {
		st.Total++
		if t.Status == StatusCompleted {
			st.Completed++
		} else {
			st.Pending++
		}
	}
	return st
}
