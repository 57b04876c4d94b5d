package collab

import (
	"testing"

	"storymapper/api/internal/app"
)

func hubClient(id, userID string) *client {
	return &client{
		id:      id,
		session: app.Session{UserID: userID, UserName: userID},
		rooms:   make(map[string]bool),
	}
}

func TestHubJoinRoster(t *testing.T) {
	hub := NewHub()
	a := hubClient("conn_a", "usr_a")
	b := hubClient("conn_b", "usr_b")

	roster := hub.Join("map_1", a)
	if len(roster) != 1 || roster[0].UserID != "usr_a" {
		t.Fatalf("unexpected roster after first join: %v", roster)
	}

	roster = hub.Join("map_1", b)
	if len(roster) != 2 {
		t.Fatalf("expected both members in roster, got %v", roster)
	}
	if !hub.Member("map_1", b) {
		t.Fatal("joined client is not a member")
	}
}

func TestHubDropLeavesEveryRoom(t *testing.T) {
	hub := NewHub()
	a := hubClient("conn_a", "usr_a")
	hub.Join("map_1", a)
	hub.Join("map_2", a)

	left := hub.Drop(a)
	if len(left) != 2 {
		t.Fatalf("expected two rooms left, got %v", left)
	}
	if hub.Member("map_1", a) || hub.Member("map_2", a) {
		t.Fatal("dropped client still a member")
	}
	if len(hub.rooms) != 0 {
		t.Fatalf("empty rooms not collected: %v", hub.rooms)
	}
}

func TestHubLeaveKeepsOtherMembers(t *testing.T) {
	hub := NewHub()
	a := hubClient("conn_a", "usr_a")
	b := hubClient("conn_b", "usr_b")
	hub.Join("map_1", a)
	hub.Join("map_1", b)

	hub.Leave("map_1", a)
	if hub.Member("map_1", a) {
		t.Fatal("client still a member after leave")
	}
	if !hub.Member("map_1", b) {
		t.Fatal("leave evicted the wrong client")
	}
}
