package backend

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/atelier-works/concierge/internal/agent"
	"github.com/atelier-works/concierge/internal/domain"
)

//go:embed users.json
var usersData []byte

// Users is the mock customer profile backend. It is read-only after
// construction and safe for concurrent use.
type Users struct {
	users      map[string]domain.UserProfile
	ids        []string // sorted, for deterministic listing
	emailIndex map[string]string
	phoneIndex map[string]string
}

// NewUsers builds a users backend from the embedded profile data.
func NewUsers() (*Users, error) {
	var raw map[string]domain.UserProfile
	if err := json.Unmarshal(usersData, &raw); err != nil {
		return nil, fmt.Errorf("decode embedded user data: %w", err)
	}

	u := &Users{
		users:      raw,
		emailIndex: make(map[string]string, len(raw)),
		phoneIndex: make(map[string]string, len(raw)),
	}
	for id, profile := range raw {
		u.ids = append(u.ids, id)
		u.emailIndex[strings.ToLower(profile.Email)] = id
		u.phoneIndex[profile.Phone] = id
	}
	sort.Strings(u.ids)

	return u, nil
}

// GetUserByEmail returns the profile for an email address, case-insensitive,
// or nil.
func (u *Users) GetUserByEmail(email string) *domain.UserProfile {
	if id, ok := u.emailIndex[strings.ToLower(email)]; ok {
		profile := u.users[id]
		return &profile
	}
	return nil
}

// GetUserByPhone returns the profile for a phone number, or nil.
func (u *Users) GetUserByPhone(phone string) *domain.UserProfile {
	if id, ok := u.phoneIndex[phone]; ok {
		profile := u.users[id]
		return &profile
	}
	return nil
}

// GetUserByID returns the profile for a user id, or nil.
func (u *Users) GetUserByID(userID string) *domain.UserProfile {
	if profile, ok := u.users[userID]; ok {
		return &profile
	}
	return nil
}

// GetAllUsers returns every profile, ordered by user id.
func (u *Users) GetAllUsers() []domain.UserProfile {
	out := make([]domain.UserProfile, 0, len(u.ids))
	for _, id := range u.ids {
		out = append(out, u.users[id])
	}
	return out
}

const getUserByEmailDoc = `Get user profile by email address. Use this to find a user's user_id and details when you have their email. Returns complete user profile including user_id, name, email, and phone.

Args:
    email: User's email address (case-insensitive)

Returns:
    User profile if found, null otherwise`

const getUserByPhoneDoc = `Get user profile by phone number. Use this to find a user's user_id and details when you have their phone number. Returns complete user profile including user_id, name, email, and phone.

Args:
    phone: User's phone number (format: +1-555-0101)

Returns:
    User profile if found, null otherwise`

const getUserByIDDoc = `Get user profile by user_id.

Args:
    user_id: The unique user identifier

Returns:
    User profile if found, null otherwise`

const getAllUsersDoc = `Get all users in the system.

Returns:
    List of all user profiles`

// Tools exposes the user lookup operations as agent tools.
func (u *Users) Tools() []agent.Tool {
	return []agent.Tool{
		{
			Name:   "get_user_by_email",
			Doc:    getUserByEmailDoc,
			Params: []agent.Param{{Name: "email", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				email, err := stringArg(args, "email")
				if err != nil {
					return nil, err
				}
				return u.GetUserByEmail(email), nil
			},
		},
		{
			Name:   "get_user_by_phone",
			Doc:    getUserByPhoneDoc,
			Params: []agent.Param{{Name: "phone", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				phone, err := stringArg(args, "phone")
				if err != nil {
					return nil, err
				}
				return u.GetUserByPhone(phone), nil
			},
		},
		{
			Name:   "get_user_by_id",
			Doc:    getUserByIDDoc,
			Params: []agent.Param{{Name: "user_id", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				userID, err := stringArg(args, "user_id")
				if err != nil {
					return nil, err
				}
				return u.GetUserByID(userID), nil
			},
		},
		{
			Name: "get_all_users",
			Doc:  getAllUsersDoc,
			Handler: func(_ context.Context, _ map[string]any) (any, error) {
				return u.GetAllUsers(), nil
			},
		},
	}
}
