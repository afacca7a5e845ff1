package exchange

import (
	"testing"

	"github.com/google/uuid"
)

func TestWouldCreateCycle(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	dave := uuid.New()

	tests := []struct {
		name      string
		edges     []Edge
		requester uuid.UUID
		owner     uuid.UUID
		want      bool
	}{
		{
			name:      "no pending edges",
			edges:     nil,
			requester: alice,
			owner:     bob,
			want:      false,
		},
		{
			name: "two party cycle",
			// bob already asked alice for a book; alice asking bob closes the loop
			edges:     []Edge{{RequesterID: bob, OwnerID: alice}},
			requester: alice,
			owner:     bob,
			want:      true,
		},
		{
			name: "three party chain closes",
			// bob -> carol -> alice pending; alice -> bob would circle back
			edges: []Edge{
				{RequesterID: bob, OwnerID: carol},
				{RequesterID: carol, OwnerID: alice},
			},
			requester: alice,
			owner:     bob,
			want:      true,
		},
		{
			name: "chain pointing away is fine",
			edges: []Edge{
				{RequesterID: bob, OwnerID: carol},
				{RequesterID: carol, OwnerID: dave},
			},
			requester: alice,
			owner:     bob,
			want:      false,
		},
		{
			name: "unrelated traffic does not trip the detector",
			edges: []Edge{
				{RequesterID: carol, OwnerID: dave},
				{RequesterID: dave, OwnerID: carol},
			},
			requester: alice,
			owner:     bob,
			want:      false,
		},
		{
			name: "own pending edge is harmless",
			// the request being approved is itself in the pending set
			edges:     []Edge{{RequesterID: alice, OwnerID: bob}},
			requester: alice,
			owner:     bob,
			want:      false,
		},
		{
			name:      "self loop",
			edges:     nil,
			requester: alice,
			owner:     alice,
			want:      true,
		},
		{
			name: "diamond with one closing path",
			edges: []Edge{
				{RequesterID: bob, OwnerID: carol},
				{RequesterID: bob, OwnerID: dave},
				{RequesterID: dave, OwnerID: alice},
			},
			requester: alice,
			owner:     bob,
			want:      true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := wouldCreateCycle(tc.edges, tc.requester, tc.owner)
			if got != tc.want {
				t.Errorf("wouldCreateCycle() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWouldCreateCycleRevisitsNoNode(t *testing.T) {
	// dense graph with shared nodes; terminates and stays negative
	users := make([]uuid.UUID, 6)
	for i := range users {
		users[i] = uuid.New()
	}

	edges := []Edge{}
	for i := 0; i < len(users)-1; i++ {
		for j := i + 1; j < len(users); j++ {
			edges = append(edges, Edge{RequesterID: users[i], OwnerID: users[j]})
		}
	}

	outsiderA := uuid.New()
	outsiderB := uuid.New()
	if wouldCreateCycle(edges, outsiderA, outsiderB) {
		t.Error("expected no cycle for users outside the graph")
	}
	// all edges point low index -> high index, so the graph is acyclic:
	// nothing flows back from users[5] to anyone
	if wouldCreateCycle(edges, users[0], users[5]) {
		t.Error("expected no cycle: users[5] has no outgoing obligations")
	}
	// the reverse direction closes a loop through the users[0] -> users[5] edge
	if !wouldCreateCycle(edges, users[5], users[0]) {
		t.Error("expected cycle: users[5] is reachable from users[0]")
	}
}
