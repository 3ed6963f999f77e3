package probe

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	queryMagic         = 0xFEFD
	queryTypeHandshake = 0x09
	queryTypeStat      = 0x00
	querySessionID     = 1
	queryMaxResponse   = 1024
)

// query runs the UDP handshake + basic stat exchange
func (p *Prober) query(ctx context.Context, host string, port int) (serverStatus, error) {
	if p.cfg.QueryPort > 0 {
		port = p.cfg.QueryPort
	}
	conn, err := p.dial(ctx, "udp", host, port)
	if err != nil {
		return serverStatus{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(readDeadline(ctx, p.cfg.QueryTimeout)); err != nil {
		return serverStatus{}, err
	}

	resp, err := exchange(conn, queryPacket(queryTypeHandshake, nil))
	if err != nil {
		return serverStatus{}, fmt.Errorf("query handshake: %w", err)
	}
	if len(resp) < 5 {
		return serverStatus{}, fmt.Errorf("query handshake response too short: %d bytes", len(resp))
	}
	token := bytes.Trim(resp[5:], "\x00")

	resp, err = exchange(conn, queryPacket(queryTypeStat, token))
	if err != nil {
		return serverStatus{}, fmt.Errorf("query stat: %w", err)
	}
	return parseQueryStat(resp)
}

// queryPacket is magic(u16 BE) + type + session(u32 BE) + payload
func queryPacket(kind byte, payload []byte) []byte {
	b := binary.BigEndian.AppendUint16(nil, queryMagic)
	b = append(b, kind)
	b = binary.BigEndian.AppendUint32(b, querySessionID)
	return append(b, payload...)
}

func exchange(conn net.Conn, packet []byte) ([]byte, error) {
	if _, err := conn.Write(packet); err != nil {
		return nil, err
	}
	buf := make([]byte, queryMaxResponse)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// parseQueryStat reads players (field 4) and max players (field 5) from the
// NUL separated body after the 5-byte type+session header.
func parseQueryStat(resp []byte) (serverStatus, error) {
	if len(resp) <= 5 {
		return serverStatus{}, fmt.Errorf("query stat response too short: %d bytes", len(resp))
	}
	fields := bytes.Split(resp[5:], []byte{0})
	if len(fields) < 6 {
		return serverStatus{}, fmt.Errorf("query stat has %d fields, need 6", len(fields))
	}

	online, err := strconv.Atoi(strings.TrimSpace(string(fields[4])))
	if err != nil {
		return serverStatus{}, fmt.Errorf("parse online players: %w", err)
	}
	maxPlayers, err := strconv.Atoi(strings.TrimSpace(string(fields[5])))
	if err != nil {
		return serverStatus{}, fmt.Errorf("parse max players: %w", err)
	}
	return serverStatus{Online: online, Max: maxPlayers}, nil
}
