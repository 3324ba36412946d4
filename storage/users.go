package storage

import (
	"errors"

	"cryptext/models"
)

// SaveUser persists a user profile and its email index entry.
func (s *Store) SaveUser(user models.UserProfile) error {
	if user.UserID == "" {
		return errors.New("user_id is required")
	}
	if user.Email == "" {
		return errors.New("email is required")
	}

	if err := s.putJSON(collectionUsers, user.UserID, user); err != nil {
		return err
	}
	return s.putValue(collectionUserEmails, user.Email, user.UserID)
}

// GetUser fetches one user profile by user ID.
func (s *Store) GetUser(userID string) (models.UserProfile, error) {
	if userID == "" {
		return models.UserProfile{}, errors.New("user_id is required")
	}

	var user models.UserProfile
	if err := s.getJSON(collectionUsers, userID, &user); err != nil {
		return models.UserProfile{}, err
	}
	return user, nil
}

// GetUserByEmail resolves an email through the email index to a profile.
func (s *Store) GetUserByEmail(email string) (models.UserProfile, error) {
	if email == "" {
		return models.UserProfile{}, errors.New("email is required")
	}

	userID, err := s.getValue(collectionUserEmails, email)
	if err != nil {
		return models.UserProfile{}, err
	}
	return s.GetUser(userID)
}
