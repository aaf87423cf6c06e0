package domain

import "time"

// ChatMessage is a persisted chat message. Immutable once created.
type ChatMessage struct {
	MessageID  string    `json:"message_id"`
	RoomID     string    `json:"room_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"text"`
	CreatedAt  time.Time `json:"timestamp"`
}

// RoomHistoryResponse wraps a room's full message history, oldest first.
type RoomHistoryResponse struct {
	RoomID   string        `json:"room_id"`
	Messages []ChatMessage `json:"messages"`
}

// WebSocket message types from client.
const (
	MsgTypeAuth        = "auth"
	MsgTypeJoin        = "join"
	MsgTypeSendMessage = "send_message"
	MsgTypeLeave       = "leave"
	MsgTypePing        = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeAuthResult = "auth_result"
	MsgTypeRoomJoined = "room_joined"
	MsgTypeMessage    = "message"
	MsgTypeError      = "error"
	MsgTypePong       = "pong"
)

// Error codes.
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotAMember    = "NOT_A_MEMBER"
	ErrCodeNotInRoom     = "NOT_IN_ROOM"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type AuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type JoinMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type SendMessageWS struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Server -> Client messages

type AuthResultMessage struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

type RoomJoinedMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// MessageOut is the broadcast form of a chat message. The author fields are
// always server-derived from the sender's authenticated session.
type MessageOut struct {
	Type       string `json:"type"`
	MessageID  string `json:"message_id"`
	RoomID     string `json:"room_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

// NewMessageOut builds the wire form of a persisted chat message.
func NewMessageOut(m *ChatMessage) *MessageOut {
	return &MessageOut{
		Type:       MsgTypeMessage,
		MessageID:  m.MessageID,
		RoomID:     m.RoomID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Text:       m.Body,
		Timestamp:  m.CreatedAt.UnixMilli(),
	}
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
