package repositories

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/conversahq/conversa_api/model"
)

func seedSession(t *testing.T, repo *SessionRepository, tokenHash string, expiresAt time.Time) *model.UserSession {
	t.Helper()

	session, err := repo.CreateSession(&model.UserSession{
		UserID:    "u1",
		TokenHash: tokenHash,
		IP:        "203.0.113.9",
		CreatedAt: time.Now(),
		LastUsed:  time.Now(),
		ExpiresAt: expiresAt,
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return session
}

func TestCreateSessionAssignsID(t *testing.T) {
	repo := NewSessionRepository(testDB(t))

	session := seedSession(t, repo, "hash-1", time.Now().Add(time.Hour))
	if session.ID == "" {
		t.Error("session ID not assigned")
	}
}

func TestGetActiveSessionByTokenHash(t *testing.T) {
	repo := NewSessionRepository(testDB(t))
	seedSession(t, repo, "hash-1", time.Now().Add(time.Hour))

	session, err := repo.GetActiveSessionByTokenHash("hash-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if session.UserID != "u1" {
		t.Errorf("user id = %q", session.UserID)
	}

	if _, err := repo.GetActiveSessionByTokenHash("no-such-hash"); err != gorm.ErrRecordNotFound {
		t.Errorf("unknown hash err = %v, want ErrRecordNotFound", err)
	}
}

func TestRevokeSessionByTokenHash(t *testing.T) {
	repo := NewSessionRepository(testDB(t))
	seedSession(t, repo, "hash-1", time.Now().Add(time.Hour))

	if err := repo.RevokeSessionByTokenHash("hash-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := repo.GetActiveSessionByTokenHash("hash-1"); err != gorm.ErrRecordNotFound {
		t.Errorf("revoked session still active, err = %v", err)
	}
}

func TestRevokeSessionsForUser(t *testing.T) {
	repo := NewSessionRepository(testDB(t))
	seedSession(t, repo, "hash-1", time.Now().Add(time.Hour))
	seedSession(t, repo, "hash-2", time.Now().Add(time.Hour))

	if err := repo.RevokeSessionsForUser("u1"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	for _, hash := range []string{"hash-1", "hash-2"} {
		if _, err := repo.GetActiveSessionByTokenHash(hash); err != gorm.ErrRecordNotFound {
			t.Errorf("session %s still active after user-wide revoke", hash)
		}
	}
}

func TestDeleteExpiredSessionsHonorsRetention(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)

	seedSession(t, repo, "ancient", time.Now().Add(-48*time.Hour))
	seedSession(t, repo, "recently-expired", time.Now().Add(-time.Minute))
	seedSession(t, repo, "live", time.Now().Add(time.Hour))

	if err := repo.DeleteExpiredSessions(24 * time.Hour); err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}

	var count int64
	if err := db.Model(&model.UserSession{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	// Only the session expired past the retention window is removed.
	if count != 2 {
		t.Errorf("rows after cleanup = %d, want 2", count)
	}
}
