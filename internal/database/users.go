package database

import (
	"fmt"
	"log"

	"github.com/lumenbank/backend/internal/models"
)

// SaveUser creates the user, or updates the stored row when a user with
// the same ID already exists.
func (s *Store) SaveUser(u *models.User) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	path := s.tablePath(usersFile)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if rowID(row) == u.UserID {
			rows[i] = u.CSVRow()
			if err := writeRows(path, models.UserCSVHeader, rows); err != nil {
				return err
			}
			s.logOp("USER_SAVE", u.UserID)
			return nil
		}
	}
	if err := appendRow(path, u.CSVRow()); err != nil {
		return err
	}
	s.logOp("USER_SAVE", u.UserID)
	return nil
}

// GetUser looks a user up by ID.
func (s *Store) GetUser(userID string) (*models.User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := s.loadUsersLocked()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
}

// GetUserByUsername looks a user up by login name.
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := s.loadUsersLocked()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

// AllUsers returns every stored user in file order.
func (s *Store) AllUsers() ([]*models.User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	return s.loadUsersLocked()
}

// UpdateUser rewrites the stored row for an existing user.
func (s *Store) UpdateUser(u *models.User) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	path := s.tablePath(usersFile)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if rowID(row) == u.UserID {
			rows[i] = u.CSVRow()
			if err := writeRows(path, models.UserCSVHeader, rows); err != nil {
				return err
			}
			s.logOp("USER_UPDATE", u.UserID)
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", u.UserID, ErrNotFound)
}

// DeleteUser removes the stored row for a user.
func (s *Store) DeleteUser(userID string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	path := s.tablePath(usersFile)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	kept := rows[:0]
	found := false
	for _, row := range rows {
		if rowID(row) == userID {
			found = true
			continue
		}
		kept = append(kept, row)
	}
	if !found {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err := writeRows(path, models.UserCSVHeader, kept); err != nil {
		return err
	}
	s.logOp("USER_DELETE", userID)
	return nil
}

func (s *Store) loadUsersLocked() ([]*models.User, error) {
	rows, err := readRows(s.tablePath(usersFile))
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(rows))
	for _, row := range rows {
		u, err := models.UserFromCSVRow(row)
		if err != nil {
			log.Printf("[STORAGE] skipping users row: %v", err)
			continue
		}
		users = append(users, u)
	}
	return users, nil
}
