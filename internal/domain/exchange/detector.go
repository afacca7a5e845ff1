package exchange

import "github.com/google/uuid"

// Edge is one unresolved exchange request viewed as a directed edge
// requester -> owner in the obligation graph.
type Edge struct {
	RequesterID uuid.UUID `db:"requester_id"`
	OwnerID     uuid.UUID `db:"owner_id"`
}

// wouldCreateCycle reports whether approving requester -> owner closes a
// directed cycle through the pending edges. BFS from owner: if the requester
// is reachable, the owner already owes a chain of books that terminates at
// the requester, and approving would let the same book circle back.
func wouldCreateCycle(edges []Edge, requesterID, ownerID uuid.UUID) bool {
	if requesterID == ownerID {
		return true
	}

	adjacency := make(map[uuid.UUID][]uuid.UUID, len(edges))
	for _, e := range edges {
		adjacency[e.RequesterID] = append(adjacency[e.RequesterID], e.OwnerID)
	}

	visited := map[uuid.UUID]bool{ownerID: true}
	queue := []uuid.UUID{ownerID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current] {
			if next == requesterID {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
