// internal/modbus/handler.go
package modbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	gmodbus "github.com/goburrow/modbus"
	"github.com/rs/zerolog"
)

// MBAP:
//
//	TID(2) PID(2=0) LEN(2) UID(1)
//
// LEN counts UID + PDU.
const (
	mbapHeaderLen = 7
	maxPDULen     = 253
	protocolID    = 0
	exceptionBit  = 0x80
)

// tcpHandler is a goburrow ClientHandler: it packages PDUs into MBAP frames
// and moves them over one persistent TCP connection.
// Not safe for concurrent use; Client serializes access.
type tcpHandler struct {
	address string
	unitID  byte
	timeout time.Duration
	log     zerolog.Logger
	dialer  net.Dialer

	// tid is the last transaction id handed out. Wraps modulo 65536.
	tid  uint16
	conn net.Conn

	// ctx governs the request currently in flight.
	ctx context.Context
}

var _ gmodbus.ClientHandler = (*tcpHandler)(nil)

func (h *tcpHandler) nextTID() uint16 {
	h.tid++
	return h.tid
}

// ---- Packager ----

func (h *tcpHandler) Encode(pdu *gmodbus.ProtocolDataUnit) ([]byte, error) {
	if len(pdu.Data) > maxPDULen-1 {
		return nil, fmt.Errorf("modbus: pdu data length %d exceeds %d", len(pdu.Data), maxPDULen-1)
	}

	adu := make([]byte, mbapHeaderLen+1+len(pdu.Data))
	binary.BigEndian.PutUint16(adu[0:2], h.nextTID())
	binary.BigEndian.PutUint16(adu[2:4], protocolID)
	binary.BigEndian.PutUint16(adu[4:6], uint16(2+len(pdu.Data)))
	adu[6] = h.unitID
	adu[7] = pdu.FunctionCode
	copy(adu[8:], pdu.Data)

	return adu, nil
}

func (h *tcpHandler) Verify(aduRequest, aduResponse []byte) error {
	if len(aduResponse) < mbapHeaderLen+1 {
		return decodeErrorf("frame length %d shorter than header", len(aduResponse))
	}

	if got, want := binary.BigEndian.Uint16(aduResponse[0:2]), binary.BigEndian.Uint16(aduRequest[0:2]); got != want {
		return decodeErrorf("transaction id %d, want %d", got, want)
	}
	if pid := binary.BigEndian.Uint16(aduResponse[2:4]); pid != protocolID {
		return decodeErrorf("protocol id %d, want %d", pid, protocolID)
	}
	if n := int(binary.BigEndian.Uint16(aduResponse[4:6])); n != len(aduResponse)-6 {
		return decodeErrorf("length field %d does not match frame (%d)", n, len(aduResponse)-6)
	}
	if aduResponse[6] != aduRequest[6] {
		return decodeErrorf("unit id %d, want %d", aduResponse[6], aduRequest[6])
	}

	fc, want := aduResponse[7], aduRequest[7]
	switch fc {
	case want:
	case want | exceptionBit:
		if len(aduResponse) != mbapHeaderLen+2 {
			return decodeErrorf("exception frame length %d", len(aduResponse))
		}
	default:
		return decodeErrorf("function code 0x%02X, want 0x%02X", fc, want)
	}

	return nil
}

func (h *tcpHandler) Decode(adu []byte) (*gmodbus.ProtocolDataUnit, error) {
	if len(adu) < mbapHeaderLen+1 {
		return nil, decodeErrorf("frame length %d shorter than header", len(adu))
	}
	return &gmodbus.ProtocolDataUnit{
		FunctionCode: adu[7],
		Data:         adu[8:],
	}, nil
}

// ---- Transporter ----

// Send writes one request and waits for the frame carrying the same
// transaction id. Frames with other ids are dropped.
func (h *tcpHandler) Send(aduRequest []byte) ([]byte, error) {
	ctx := h.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if h.conn == nil {
		if err := h.connect(ctx); err != nil {
			return nil, err
		}
	}
	conn := h.conn

	deadline := time.Now().Add(h.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		h.drop()
		return nil, &ConnectionError{Op: "deadline", Err: err}
	}

	// Cancellation unblocks the socket by expiring its deadline. If the
	// callback has started it may still land after this request returns,
	// so the connection is not reused.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer func() {
		if !stop() && h.conn == conn {
			h.drop()
		}
	}()

	if _, err := conn.Write(aduRequest); err != nil {
		h.drop()
		return nil, h.ioError(ctx, "write", err)
	}

	want := binary.BigEndian.Uint16(aduRequest[0:2])

	for {
		frame, err := readFrame(conn)
		if err != nil {
			h.drop()
			return nil, h.ioError(ctx, "read", err)
		}

		if tid := binary.BigEndian.Uint16(frame[0:2]); tid != want {
			h.log.Debug().
				Uint16("tid", tid).
				Uint16("want_tid", want).
				Msg("discarding response with unexpected transaction id")
			continue
		}

		return frame, nil
	}
}

// readFrame reads exactly one MBAP frame.
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [mbapHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	if pid := binary.BigEndian.Uint16(hdr[2:4]); pid != protocolID {
		return nil, decodeErrorf("protocol id %d in stream", pid)
	}
	length := int(binary.BigEndian.Uint16(hdr[4:6]))
	if length < 2 || length > maxPDULen+1 {
		return nil, decodeErrorf("length field %d out of range", length)
	}

	frame := make([]byte, 6+length)
	copy(frame, hdr[:])
	if _, err := io.ReadFull(r, frame[mbapHeaderLen:]); err != nil {
		return nil, err
	}
	return frame, nil
}

func (h *tcpHandler) ioError(ctx context.Context, op string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: no response within %s", ErrTimeout, h.timeout)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ConnectionError{Op: op, Err: errors.New("connection closed by peer")}
	}
	return &ConnectionError{Op: op, Err: err}
}

// ---- connection lifecycle ----

func (h *tcpHandler) connect(ctx context.Context) error {
	if h.conn != nil {
		return nil
	}

	dctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	conn, err := h.dialer.DialContext(dctx, "tcp", h.address)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ConnectionError{Op: "dial", Err: err}
	}

	h.conn = conn
	h.log.Debug().Msg("connected")
	return nil
}

// drop tears down the connection after a failure; the next request redials.
func (h *tcpHandler) drop() {
	if h.conn == nil {
		return
	}
	_ = h.conn.Close()
	h.conn = nil
	h.log.Debug().Msg("connection dropped")
}

func (h *tcpHandler) close() error {
	if h.conn == nil {
		return nil
	}
	err := h.conn.Close()
	h.conn = nil
	return err
}
