package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grekus14/MeChat/internal/config"
	"github.com/Grekus14/MeChat/internal/domain"
	"github.com/Grekus14/MeChat/internal/hub"
	"github.com/Grekus14/MeChat/internal/policy"
	"github.com/Grekus14/MeChat/internal/token"
)

type fakeBroadcaster struct {
	joins      []string
	leaves     []string
	broadcasts []broadcastCall
}

type broadcastCall struct {
	roomID  string
	message interface{}
	exclude string
}

func (f *fakeBroadcaster) JoinRoom(client *hub.Client, roomID string) {
	f.joins = append(f.joins, roomID)
}

func (f *fakeBroadcaster) LeaveRoom(client *hub.Client, roomID string) {
	f.leaves = append(f.leaves, roomID)
}

func (f *fakeBroadcaster) Broadcast(roomID string, message interface{}, exclude string) error {
	f.broadcasts = append(f.broadcasts, broadcastCall{roomID: roomID, message: message, exclude: exclude})
	return nil
}

type fakeTokenValidator struct {
	claims *token.Claims
	err    error
}

func (f *fakeTokenValidator) ValidateToken(string) (*token.Claims, error) {
	return f.claims, f.err
}

type fakeFriendRepo struct {
	memberRooms map[string]bool // "userID/roomID" -> member
	memberErr   error
}

func (f *fakeFriendRepo) CreateRequest(ctx context.Context, requesterID, addresseeID string) error {
	return nil
}

func (f *fakeFriendRepo) GetPair(ctx context.Context, a, b string) (*domain.Friendship, error) {
	return nil, nil
}

func (f *fakeFriendRepo) Accept(ctx context.Context, requesterID, addresseeID, roomID string) error {
	return nil
}

func (f *fakeFriendRepo) Remove(ctx context.Context, a, b string) (string, error) {
	return "", nil
}

func (f *fakeFriendRepo) ListFriends(ctx context.Context, userID string) ([]domain.Friendship, error) {
	return nil, nil
}

func (f *fakeFriendRepo) ListIncomingRequests(ctx context.Context, userID string) ([]domain.Friendship, error) {
	return nil, nil
}

func (f *fakeFriendRepo) IsRoomMember(ctx context.Context, userID, roomID string) (bool, error) {
	if f.memberErr != nil {
		return false, f.memberErr
	}
	return f.memberRooms[userID+"/"+roomID], nil
}

type fakeMessageRepo struct {
	appended  []domain.ChatMessage
	appendErr error
	byRoom    map[string][]domain.ChatMessage
	deleted   []string
}

func (f *fakeMessageRepo) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if msg.MessageID == "" {
		msg.MessageID = "msg-1"
	}
	f.appended = append(f.appended, *msg)
	return nil
}

func (f *fakeMessageRepo) ListByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	return f.byRoom[roomID], nil
}

func (f *fakeMessageRepo) DeleteByRoom(ctx context.Context, roomID string) error {
	f.deleted = append(f.deleted, roomID)
	return nil
}

func newWSClient(id string) *hub.Client {
	return hub.NewClient(id, nil, nil, config.WebSocketConfig{
		PingInterval:   54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	})
}

func readReply(t *testing.T, c *hub.Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		return payload
	default:
		t.Fatal("expected a reply on the client send channel")
		return nil
	}
}

func newChatFixture(friends *fakeFriendRepo, messages *fakeMessageRepo, tokens tokenValidator) (ChatService, *fakeBroadcaster) {
	b := &fakeBroadcaster{}
	if tokens == nil {
		tokens = &fakeTokenValidator{err: token.ErrInvalidToken}
	}
	svc := NewChatService(b, tokens, friends, messages, policy.NewWordLengthPolicy(15))
	return svc, b
}

func TestHandleAuthSuccess(t *testing.T) {
	svc, _ := newChatFixture(&fakeFriendRepo{}, &fakeMessageRepo{}, &fakeTokenValidator{
		claims: &token.Claims{UserID: "user-1", Username: "alice", Type: "access"},
	})
	client := newWSClient("c1")

	svc.HandleAuth(context.Background(), client, "some-token")

	reply := readReply(t, client)
	assert.Equal(t, domain.MsgTypeAuthResult, reply["type"])
	assert.Equal(t, true, reply["success"])
	assert.Equal(t, "user-1", reply["user_id"])
	assert.True(t, client.Session.IsAuthenticated())
	assert.Equal(t, "alice", client.Session.GetUsername())
}

func TestHandleAuthRejectsRefreshToken(t *testing.T) {
	svc, _ := newChatFixture(&fakeFriendRepo{}, &fakeMessageRepo{}, &fakeTokenValidator{
		claims: &token.Claims{UserID: "user-1", Type: "refresh"},
	})
	client := newWSClient("c1")

	svc.HandleAuth(context.Background(), client, "refresh-token")

	reply := readReply(t, client)
	assert.Equal(t, false, reply["success"])
	assert.False(t, client.Session.IsAuthenticated())
}

func TestHandleAuthInvalidToken(t *testing.T) {
	svc, _ := newChatFixture(&fakeFriendRepo{}, &fakeMessageRepo{}, &fakeTokenValidator{err: token.ErrExpiredToken})
	client := newWSClient("c1")

	svc.HandleAuth(context.Background(), client, "expired")

	reply := readReply(t, client)
	assert.Equal(t, false, reply["success"])
	assert.False(t, client.Session.IsAuthenticated())
}

func TestHandleJoinRequiresAuth(t *testing.T) {
	svc, b := newChatFixture(&fakeFriendRepo{}, &fakeMessageRepo{}, nil)
	client := newWSClient("c1")

	svc.HandleJoin(context.Background(), client, "room-1")

	reply := readReply(t, client)
	assert.Equal(t, domain.MsgTypeError, reply["type"])
	assert.Equal(t, domain.ErrCodeUnauthorized, reply["code"])
	assert.Empty(t, b.joins)
}

func TestHandleJoinRejectsNonMember(t *testing.T) {
	friends := &fakeFriendRepo{memberRooms: map[string]bool{}}
	svc, b := newChatFixture(friends, &fakeMessageRepo{}, nil)
	client := newWSClient("c1")
	client.Session.Authenticate("user-1", "alice")

	svc.HandleJoin(context.Background(), client, "room-1")

	reply := readReply(t, client)
	assert.Equal(t, domain.ErrCodeNotAMember, reply["code"])
	assert.Empty(t, b.joins)
	assert.Empty(t, client.Session.CurrentRoom())
}

func TestHandleJoinMember(t *testing.T) {
	friends := &fakeFriendRepo{memberRooms: map[string]bool{"user-1/room-1": true}}
	svc, b := newChatFixture(friends, &fakeMessageRepo{}, nil)
	client := newWSClient("c1")
	client.Session.Authenticate("user-1", "alice")

	svc.HandleJoin(context.Background(), client, "room-1")

	reply := readReply(t, client)
	assert.Equal(t, domain.MsgTypeRoomJoined, reply["type"])
	assert.Equal(t, "room-1", reply["room_id"])
	assert.Equal(t, []string{"room-1"}, b.joins)
	assert.Equal(t, "room-1", client.Session.CurrentRoom())
}

func TestHandleJoinSwitchesRooms(t *testing.T) {
	friends := &fakeFriendRepo{memberRooms: map[string]bool{
		"user-1/room-1": true,
		"user-1/room-2": true,
	}}
	svc, b := newChatFixture(friends, &fakeMessageRepo{}, nil)
	client := newWSClient("c1")
	client.Session.Authenticate("user-1", "alice")

	svc.HandleJoin(context.Background(), client, "room-1")
	<-client.Send
	svc.HandleJoin(context.Background(), client, "room-2")

	reply := readReply(t, client)
	assert.Equal(t, "room-2", reply["room_id"])
	assert.Equal(t, []string{"room-1"}, b.leaves)
	assert.Equal(t, []string{"room-1", "room-2"}, b.joins)
	assert.Equal(t, "room-2", client.Session.CurrentRoom())
}

func TestHandleSendMessagePersistsThenBroadcasts(t *testing.T) {
	friends := &fakeFriendRepo{memberRooms: map[string]bool{"user-1/room-1": true}}
	messages := &fakeMessageRepo{}
	svc, b := newChatFixture(friends, messages, nil)
	client := newWSClient("c1")
	client.Session.Authenticate("user-1", "alice")
	client.Session.JoinRoom("room-1")

	svc.HandleSendMessage(context.Background(), client, "hello there")

	require.Len(t, messages.appended, 1)
	saved := messages.appended[0]
	assert.Equal(t, "room-1", saved.RoomID)
	assert.Equal(t, "user-1", saved.AuthorID)
	assert.Equal(t, "alice", saved.AuthorName)
	assert.Equal(t, "hello there", saved.Body)

	require.Len(t, b.broadcasts, 1)
	call := b.broadcasts[0]
	assert.Equal(t, "room-1", call.roomID)
	assert.Equal(t, "c1", call.exclude)
	out, ok := call.message.(*domain.MessageOut)
	require.True(t, ok)
	assert.Equal(t, "user-1", out.AuthorID)
	assert.Equal(t, "alice", out.AuthorName)
	assert.Equal(t, "hello there", out.Text)
}

func TestHandleSendMessageRejectsLongWord(t *testing.T) {
	messages := &fakeMessageRepo{}
	svc, b := newChatFixture(&fakeFriendRepo{}, messages, nil)
	client := newWSClient("c1")
	client.Session.Authenticate("user-1", "alice")
	client.Session.JoinRoom("room-1")

	svc.HandleSendMessage(context.Background(), client, "hi superlongwordthatistoolong")

	reply := readReply(t, client)
	assert.Equal(t, domain.ErrCodeValidation, reply["code"])
	assert.Empty(t, messages.appended)
	assert.Empty(t, b.broadcasts)
}

func TestHandleSendMessageRequiresRoom(t *testing.T) {
	messages := &fakeMessageRepo{}
	svc, b := newChatFixture(&fakeFriendRepo{}, messages, nil)
	client := newWSClient("c1")
	client.Session.Authenticate("user-1", "alice")

	svc.HandleSendMessage(context.Background(), client, "hello")

	reply := readReply(t, client)
	assert.Equal(t, domain.ErrCodeNotInRoom, reply["code"])
	assert.Empty(t, messages.appended)
	assert.Empty(t, b.broadcasts)
}

func TestHandleSendMessagePersistFailureSkipsBroadcast(t *testing.T) {
	messages := &fakeMessageRepo{appendErr: errors.New("db down")}
	svc, b := newChatFixture(&fakeFriendRepo{}, messages, nil)
	client := newWSClient("c1")
	client.Session.Authenticate("user-1", "alice")
	client.Session.JoinRoom("room-1")

	svc.HandleSendMessage(context.Background(), client, "hello")

	reply := readReply(t, client)
	assert.Equal(t, domain.ErrCodeInternalError, reply["code"])
	assert.Empty(t, b.broadcasts)
}

func TestHandleLeaveIdempotent(t *testing.T) {
	svc, b := newChatFixture(&fakeFriendRepo{}, &fakeMessageRepo{}, nil)
	client := newWSClient("c1")
	client.Session.Authenticate("user-1", "alice")

	svc.HandleLeave(context.Background(), client)
	assert.Empty(t, b.leaves)

	client.Session.JoinRoom("room-1")
	svc.HandleLeave(context.Background(), client)
	assert.Equal(t, []string{"room-1"}, b.leaves)
	assert.Empty(t, client.Session.CurrentRoom())

	svc.HandleLeave(context.Background(), client)
	assert.Equal(t, []string{"room-1"}, b.leaves)
}
