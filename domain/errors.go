package domain

import "fmt"

// ErrorCode はクライアントへ通知するエラーの閉じた列挙です。
type ErrorCode uint8

const (
	CodeGeneric ErrorCode = iota
	CodeAuthFailure
	CodePlayerExists
	CodeServerFull
	CodeRoomNotFound
	CodeCommandNotRecognized
	CodeSelfAttack
	CodeRoomClosed
)

func (c ErrorCode) String() string {
	switch c {
	case CodeGeneric:
		return "generic_error"
	case CodeAuthFailure:
		return "auth_failure"
	case CodePlayerExists:
		return "player_exists"
	case CodeServerFull:
		return "server_full"
	case CodeRoomNotFound:
		return "room_not_found"
	case CodeCommandNotRecognized:
		return "command_not_recognized"
	case CodeSelfAttack:
		return "self_attack"
	case CodeRoomClosed:
		return "room_closed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// GameError はエラーコード付きのゲームロジックエラーです。
// errors.Is はコードの一致で判定します。
type GameError struct {
	Code ErrorCode
	msg  string
}

// NewGameError は新しいGameErrorを生成します。
func NewGameError(code ErrorCode, msg string) *GameError {
	return &GameError{Code: code, msg: msg}
}

func (e *GameError) Error() string {
	return e.Code.String() + ": " + e.msg
}

func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrServerFull           = NewGameError(CodeServerFull, "room is at capacity")
	ErrPlayerExists         = NewGameError(CodePlayerExists, "player name already taken")
	ErrRoomNotFound         = NewGameError(CodeRoomNotFound, "room does not exist")
	ErrRoomClosed           = NewGameError(CodeRoomClosed, "room is closed")
	ErrSelfAttack           = NewGameError(CodeSelfAttack, "player attacked themselves")
	ErrCommandNotRecognized = NewGameError(CodeCommandNotRecognized, "unrecognized command")
)
