package authpw

import (
	"context"
	"errors"
	"testing"

	"storymapper/api/internal/store"
)

// mockUserStore is a mock implementation of UserStore for testing
type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string // email -> userID
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
	}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) CreateUser(ctx context.Context, user store.User) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(newMockUserStore())

	user, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "Avery@Example.com",
		Password:    "correct horse",
		DisplayName: "Avery",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.Email != "avery@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash == "correct horse" {
		t.Fatal("password stored in clear")
	}

	got, err := svc.SignIn(context.Background(), SignInRequest{
		Email:    "avery@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("SignIn() returned user %q, want %q", got.ID, user.ID)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(newMockUserStore())
	req := SignUpRequest{Email: "avery@example.com", Password: "correct horse", DisplayName: "Avery"}

	if _, err := svc.SignUp(context.Background(), req); err != nil {
		t.Fatalf("first SignUp() error = %v", err)
	}
	if _, err := svc.SignUp(context.Background(), req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("second SignUp() error = %v, want ErrEmailTaken", err)
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(newMockUserStore())
	_, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "avery@example.com",
		Password:    "short",
		DisplayName: "Avery",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("SignUp() error = %v, want ErrWeakPassword", err)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	svc := NewService(newMockUserStore())
	if _, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "avery@example.com",
		Password:    "correct horse",
		DisplayName: "Avery",
	}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	_, err := svc.SignIn(context.Background(), SignInRequest{
		Email:    "avery@example.com",
		Password: "wrong horse",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("SignIn() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignInRejectsUnknownEmail(t *testing.T) {
	svc := NewService(newMockUserStore())
	_, err := svc.SignIn(context.Background(), SignInRequest{
		Email:    "nobody@example.com",
		Password: "correct horse",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("SignIn() error = %v, want ErrInvalidCredentials", err)
	}
}
