package replication

import (
	"fmt"
	"net"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

// conn wraps a net.Conn with the message-level send/recv vocabulary both
// leader and replica use, keeping the framing details out of the
// connection-handling code.
type conn struct {
	nc net.Conn
}

func newConn(nc net.Conn) *conn { return &conn{nc: nc} }

func (c *conn) Close() error { return c.nc.Close() }

func (c *conn) send(msgType MsgType, payload []byte) error {
	return writeFrame(c.nc, msgType, payload)
}

// recv reads the next frame and decodes it into one of the typed message
// structs, returned as `any` for the caller to type-switch on.
func (c *conn) recv() (any, error) {
	msgType, payload, err := readFrame(c.nc)
	if err != nil {
		return nil, err
	}
	switch msgType {
	case MsgHello:
		return decodeHello(payload)
	case MsgWelcome:
		return decodeWelcome(payload)
	case MsgWalEntry:
		return decodeWalMessage(payload)
	case MsgWalAck:
		return decodeWalAck(payload)
	case MsgSnapshotMeta:
		return decodeSnapshotMeta(payload)
	case MsgSnapshotChunk:
		return decodeSnapshotChunk(payload)
	case MsgSnapshotComplete:
		return decodeSnapshotComplete(payload)
	case MsgPing:
		return decodePing(payload)
	case MsgPong:
		return decodePong(payload)
	case MsgError:
		return decodeErrorMsg(payload)
	default:
		return nil, nexuserr.New(nexuserr.KindReplication, nexuserr.CodeProtocolMismatch,
			fmt.Sprintf("unknown message type %d", uint8(msgType)))
	}
}

func (c *conn) sendHello(m Hello) error          { return c.send(MsgHello, m.encode()) }
func (c *conn) sendWelcome(m Welcome) error       { return c.send(MsgWelcome, m.encode()) }
func (c *conn) sendWalMessage(m WalMessage) error { return c.send(MsgWalEntry, m.encode()) }
func (c *conn) sendWalAck(m WalAck) error         { return c.send(MsgWalAck, m.encode()) }
func (c *conn) sendPing(m Ping) error             { return c.send(MsgPing, m.encode()) }
func (c *conn) sendPong(m Pong) error             { return c.send(MsgPong, m.encode()) }
func (c *conn) sendError(m ErrorMsg) error        { return c.send(MsgError, m.encode()) }

func (c *conn) sendSnapshotMeta(m SnapshotMeta) error {
	return c.send(MsgSnapshotMeta, m.encode())
}
func (c *conn) sendSnapshotChunk(m SnapshotChunk) error {
	return c.send(MsgSnapshotChunk, m.encode())
}
func (c *conn) sendSnapshotComplete(m SnapshotComplete) error {
	return c.send(MsgSnapshotComplete, m.encode())
}
