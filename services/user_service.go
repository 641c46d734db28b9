package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"

	"linkFlowAPI/internal/store"
	"linkFlowAPI/internal/types/item"
	"linkFlowAPI/internal/types/profile"
)

// UsernamesCollection is the document collection holding one profile
// per claimed username, keyed by the username itself.
const UsernamesCollection = "usernames"

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrNoEmail       = errors.New("authenticated user has no email address")
)

// Identity is what the auth provider knows about the signed-in user.
// The email is the lookup key into the profile store.
type Identity struct {
	Email     string
	FirstName string
	LastName  string
}

// IdentityResolver turns the auth provider's user ID into an Identity.
// Abstracted so tests can inject fixtures instead of calling Clerk.
type IdentityResolver interface {
	Resolve(ctx context.Context, clerkID string) (*Identity, error)
}

// ClerkIdentityResolver resolves identities through the Clerk user API.
type ClerkIdentityResolver struct{}

func (ClerkIdentityResolver) Resolve(ctx context.Context, clerkID string) (*Identity, error) {
	u, err := clerkuser.Get(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clerk user %s: %w", clerkID, err)
	}

	email := primaryEmail(u)
	if email == "" {
		return nil, ErrNoEmail
	}

	identity := &Identity{Email: email}
	if u.FirstName != nil {
		identity.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		identity.LastName = *u.LastName
	}
	return identity, nil
}

func primaryEmail(u *clerk.User) string {
	for _, addr := range u.EmailAddresses {
		if u.PrimaryEmailAddressID != nil && addr.ID == *u.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

type UserService struct {
	db  store.DocumentStore
	ids IdentityResolver
}

func NewUserService(db store.DocumentStore, ids IdentityResolver) *UserService {
	return &UserService{db: db, ids: ids}
}

// GetSession resolves the signed-in identity to its profile. Returns
// store.ErrNotFound when no username has been claimed yet, which the
// handler surfaces as the claim-a-username step.
func (s *UserService) GetSession(ctx context.Context, clerkID string) (*profile.UserProfile, error) {
	identity, err := s.ids.Resolve(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var p profile.UserProfile
	if err := s.db.FindByField(ctx, UsernamesCollection, "email", identity.Email, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ClaimUsername creates the profile document. The username is chosen
// exactly once; uniqueness is checked here and never again (there is
// no rename path).
func (s *UserService) ClaimUsername(ctx context.Context, clerkID, rawUsername string) (*profile.UserProfile, error) {
	username, err := profile.NormalizeUsername(rawUsername)
	if err != nil {
		return nil, err
	}

	var existing profile.UserProfile
	err = s.db.Get(ctx, UsernamesCollection, username, &existing)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username %s: %w", username, err)
	}

	identity, err := s.ids.Resolve(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	p := &profile.UserProfile{
		Username:  username,
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		CreatedAt: time.Now().UTC(),
		Items:     []item.Item{},
	}

	if err := s.db.Set(ctx, UsernamesCollection, username, p); err != nil {
		return nil, fmt.Errorf("failed to create profile %s: %w", username, err)
	}

	log.Printf("UserService: profile created for username %s", username)
	return p, nil
}

// GetByUsername fetches a profile for public display.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*profile.UserProfile, error) {
	var p profile.UserProfile
	if err := s.db.Get(ctx, UsernamesCollection, username, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile applies a partial bio/caption edit.
func (s *UserService) UpdateProfile(ctx context.Context, username string, req *profile.UpdateProfileRequest) (*profile.UserProfile, error) {
	fields := make(map[string]any)
	if req.Bio != nil {
		fields["bio"] = *req.Bio
	}
	if req.Caption != nil {
		fields["caption"] = *req.Caption
	}

	if len(fields) > 0 {
		if err := s.db.Update(ctx, UsernamesCollection, username, fields); err != nil {
			return nil, fmt.Errorf("failed to update profile %s: %w", username, err)
		}
	}

	return s.GetByUsername(ctx, username)
}

// SetPhotoURL records the CDN URL of a freshly uploaded profile photo.
func (s *UserService) SetPhotoURL(ctx context.Context, username, photoURL string) error {
	if err := s.db.Update(ctx, UsernamesCollection, username, map[string]any{"photoURL": photoURL}); err != nil {
		return fmt.Errorf("failed to update photo for %s: %w", username, err)
	}
	return nil
}
