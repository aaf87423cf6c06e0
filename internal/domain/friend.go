package domain

import "time"

// Friendship statuses.
const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
)

// Friendship is the domain representation of a friend edge. Once accepted
// it carries the RoomID of the private conversation shared by the pair;
// the room's membership is exactly the two endpoints and never changes.
type Friendship struct {
	RequesterID string
	AddresseeID string
	Status      string
	RoomID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Involves reports whether userID is one of the edge's endpoints.
func (f *Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// Other returns the endpoint that is not userID.
func (f *Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// FriendResponse is a friend entry in API responses: the friend's public
// profile plus the room id used for private messaging.
type FriendResponse struct {
	User   UserResponse `json:"user"`
	RoomID string       `json:"room_id"`
	Since  time.Time    `json:"since"`
}

// FriendRequestResponse is an incoming pending request in API responses.
type FriendRequestResponse struct {
	User        UserResponse `json:"user"`
	RequestedAt time.Time    `json:"requested_at"`
}
