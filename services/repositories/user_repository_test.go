package repositories

import (
	"testing"

	"github.com/conversahq/conversa_api/model"
)

func TestCreateUserAssignsID(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	user, err := repo.CreateUser(&model.User{
		Email:    "u1@example.com",
		Password: "bcrypt-hash",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == "" {
		t.Error("user ID not assigned")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	if _, err := repo.CreateUser(&model.User{Email: "u1@example.com", Password: "x", IsActive: true}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := repo.CreateUser(&model.User{Email: "u1@example.com", Password: "y", IsActive: true}); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestGetUserByEmail(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	created, err := repo.CreateUser(&model.User{Email: "u1@example.com", Password: "x", IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	user, err := repo.GetUserByEmail("u1@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("id = %q, want %q", user.ID, created.ID)
	}
}

func TestTouchLastLogin(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	created, err := repo.CreateUser(&model.User{Email: "u1@example.com", Password: "x", IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.LastLogin != nil {
		t.Fatal("LastLogin set before first login")
	}

	if err := repo.TouchLastLogin(created.ID); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}

	user, err := repo.GetUserByID(created.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if user.LastLogin == nil {
		t.Error("LastLogin still nil after touch")
	}
}
