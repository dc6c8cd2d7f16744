package repository

import (
	"errors"
	"fmt"
	"sort"

	"tpm-hub/internal/models"
	"tpm-hub/internal/store"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

func userSchema() store.Schema {
	return store.Schema{
		Name: "users",
		Columns: []store.Column{
			{Name: "id"},
			{Name: "password"},
			{Name: "name"},
			{Name: "role", Default: models.RoleMember},
			{Name: "department"},
			{Name: "title"},
			{Name: "joined_on"},
		},
	}
}

// UserRepository maps the user table to typed records.
type UserRepository struct {
	store store.Store
}

// NewUserRepository creates a new user repository.
func NewUserRepository(s store.Store) *UserRepository {
	return &UserRepository{store: s}
}

// All returns every user in table order.
func (r *UserRepository) All() ([]models.User, error) {
	t, err := r.store.Load(userSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	users := make([]models.User, 0, len(t.Rows))
	for _, row := range t.Rows {
		users = append(users, rowToUser(row))
	}
	return users, nil
}

// Get retrieves a user by id.
func (r *UserRepository) Get(id string) (*models.User, error) {
	t, err := r.store.Load(userSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	i := t.FindIndex("id", id)
	if i < 0 {
		return nil, ErrUserNotFound
	}
	u := rowToUser(t.Rows[i])
	return &u, nil
}

// Create appends a new user; the id must be unused.
func (r *UserRepository) Create(u *models.User) error {
	return r.store.Update(userSchema(), func(t *store.Table) error {
		if t.FindIndex("id", u.ID) >= 0 {
			return ErrUserExists
		}
		t.Append(userToRow(u))
		return nil
	})
}

// UpdatePassword replaces a user's credential hash.
func (r *UserRepository) UpdatePassword(id, hash string) error {
	return r.store.Update(userSchema(), func(t *store.Table) error {
		i := t.FindIndex("id", id)
		if i < 0 {
			return ErrUserNotFound
		}
		t.Rows[i]["password"] = hash
		return nil
	})
}

// Delete removes users selected by id and by row index in one write.
// Index deletions run in descending order so earlier removals do not
// shift the positions of later ones.
func (r *UserRepository) Delete(ids []string, indices []int) error {
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	return r.store.Update(userSchema(), func(t *store.Table) error {
		kept := t.Rows[:0]
		for _, row := range t.Rows {
			if !selected[row.Get("id")] {
				kept = append(kept, row)
			}
		}
		t.Rows = kept

		sorted := append([]int(nil), indices...)
		sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
		for _, i := range sorted {
			t.DeleteIndex(i)
		}
		return nil
	})
}

// DepartmentsByID returns the author-id to department mapping used for
// the in-memory join on leaderboard reads.
func (r *UserRepository) DepartmentsByID() (map[string]string, error) {
	users, err := r.All()
	if err != nil {
		return nil, err
	}
	depts := make(map[string]string, len(users))
	for _, u := range users {
		depts[u.ID] = u.Department
	}
	return depts, nil
}

func rowToUser(row store.Row) models.User {
	return models.User{
		ID:           row.Get("id"),
		PasswordHash: row.Get("password"),
		Name:         row.Get("name"),
		Role:         row.Get("role"),
		Department:   row.Get("department"),
		Title:        row.Get("title"),
		JoinedOn:     row.Get("joined_on"),
	}
}

func userToRow(u *models.User) store.Row {
	return store.Row{
		"id":         u.ID,
		"password":   u.PasswordHash,
		"name":       u.Name,
		"role":       u.Role,
		"department": u.Department,
		"title":      u.Title,
		"joined_on":  u.JoinedOn,
	}
}
