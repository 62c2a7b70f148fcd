package domain

import "context"

//go:generate go tool mockgen -destination=./mocks/transport_mock.go -package=mocks . Transport

// Transport は物理接続が依存するI/O境界です。
// ストリーム側（websocket）とデータグラム側（UDP）の双方の
// アダプタがこのインターフェースを実装します。
type Transport interface {
	Read(ctx context.Context) (data []byte, err error)
	Write(ctx context.Context, data []byte) error
	Close(code int32, reason string) error
}

// Codec はワイヤフレーミングの境界です。コアは構造化された
// Command/Eventのみを扱い、バイト列との変換は外部に委ねます。
type Codec interface {
	Decode(data []byte) (Command, error)
	Encode(ev Event) ([]byte, error)
}

// Connection は物理接続を表します。
type Connection struct {
	session   *Session
	transport Transport
}

// NewConnection は新しいConnectionを生成します。
func NewConnection(session *Session, transport Transport) *Connection {
	return &Connection{session: session, transport: transport}
}

// Session は接続に紐づく論理セッションを返します。
func (c *Connection) Session() *Session {
	return c.session
}

func (c *Connection) Read(ctx context.Context) ([]byte, error) {
	data, err := c.transport.Read(ctx)
	if err != nil {
		return nil, err
	}
	c.session.TouchRead()
	return data, nil
}

func (c *Connection) Write(ctx context.Context, data []byte) error {
	if err := c.transport.Write(ctx, data); err != nil {
		return err
	}
	c.session.TouchWrite()
	return nil
}

func (c *Connection) Close() {
	_ = c.transport.Close(1000, "")
}
