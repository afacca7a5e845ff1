package exchange

import (
	"testing"

	"github.com/google/uuid"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted, StatusDisputed} {
		if !s.Valid() {
			t.Errorf("%s should be a known status", s)
		}
	}
	for _, s := range []Status{"", "Pending", "done", "open"} {
		if s.Valid() {
			t.Errorf("%q should not be a known status", s)
		}
	}
}

// Every (from, to) pair is checked so that no transition outside the table can
// sneak in: pending resolves one of three ways, approved lands or gets
// disputed, and the four terminal statuses go nowhere.
func TestCanTransitionToCoversEveryPair(t *testing.T) {
	all := []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted, StatusDisputed}

	allowed := map[Status]map[Status]bool{
		StatusPending:  {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
		StatusApproved: {StatusCompleted: true, StatusDisputed: true},
	}

	for _, from := range all {
		for _, to := range all {
			r := Request{Status: from}
			got := r.CanTransitionTo(to)
			want := allowed[from][to]
			if got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIsParty(t *testing.T) {
	r := Request{RequesterID: uuid.New(), OwnerID: uuid.New()}

	if !r.IsParty(r.RequesterID) || !r.IsParty(r.OwnerID) {
		t.Error("both parties should pass IsParty")
	}
	if r.IsParty(uuid.New()) {
		t.Error("a stranger should not pass IsParty")
	}
}
