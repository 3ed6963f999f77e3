package probe

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

const (
	modernMaxResponse = 4096
	modernChunk       = 1024
)

// statusRequest is the length-prefixed, field-less status request packet
var statusRequest = []byte{0x01, 0x00}

func (p *Prober) modern(ctx context.Context, host string, port int) (serverStatus, error) {
	conn, err := p.dial(ctx, "tcp", host, port)
	if err != nil {
		return serverStatus{}, err
	}
	defer conn.Close()

	if _, err := conn.Write(handshakePacket(p.cfg.ProtocolVersion, host, uint16(port))); err != nil {
		return serverStatus{}, fmt.Errorf("send handshake: %w", err)
	}
	if _, err := conn.Write(statusRequest); err != nil {
		return serverStatus{}, fmt.Errorf("send status request: %w", err)
	}

	if err := conn.SetReadDeadline(readDeadline(ctx, p.cfg.ModernReadTimeout)); err != nil {
		return serverStatus{}, err
	}
	return readModernStatus(conn)
}

// handshakePacket builds [len][0x00][version][addr len][addr][port BE][next state=1]
func handshakePacket(version int, host string, port uint16) []byte {
	var body []byte
	body = appendVarInt(body, 0x00)
	body = appendVarInt(body, int32(version))
	body = appendVarInt(body, int32(len(host)))
	body = append(body, host...)
	body = binary.BigEndian.AppendUint16(body, port)
	body = appendVarInt(body, 1)

	packet := appendVarInt(nil, int32(len(body)))
	return append(packet, body...)
}

// appendVarInt writes v as a protocol varint (7 bits per byte, LSB first).
// Values below 128 encode to a single byte.
func appendVarInt(b []byte, v int32) []byte {
	u := uint32(v)
	for u >= 0x80 {
		b = append(b, byte(u)|0x80)
		u >>= 7
	}
	return append(b, byte(u))
}

// readModernStatus accumulates up to 4 KiB and returns as soon as a JSON
// payload between the first '{' and the last '}' decodes. The frame header is
// skipped rather than parsed so segmented reads are tolerated.
func readModernStatus(r io.Reader) (serverStatus, error) {
	buf := make([]byte, 0, modernMaxResponse)
	chunk := make([]byte, modernChunk)

	for len(buf) < modernMaxResponse {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if len(buf) > 10 {
			if st, ok := extractStatus(buf); ok {
				return st, nil
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return serverStatus{}, fmt.Errorf("read status (%d bytes): %w", len(buf), err)
		}
	}
	return serverStatus{}, fmt.Errorf("no status payload in %d bytes", len(buf))
}

type statusPayload struct {
	Players *struct {
		Online int `json:"online"`
		Max    int `json:"max"`
	} `json:"players"`
}

func extractStatus(buf []byte) (serverStatus, bool) {
	start := bytes.IndexByte(buf, '{')
	if start < 0 {
		return serverStatus{}, false
	}
	end := bytes.LastIndexByte(buf, '}')
	if end <= start {
		return serverStatus{}, false
	}

	var payload statusPayload
	if err := json.Unmarshal(buf[start:end+1], &payload); err != nil {
		return serverStatus{}, false
	}
	if payload.Players == nil {
		return serverStatus{}, true
	}
	return serverStatus{Online: payload.Players.Online, Max: payload.Players.Max}, true
}
