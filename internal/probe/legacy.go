package probe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const legacyMaxResponse = 1024

var legacyPing = []byte{0xFE, 0x01}

// legacy speaks the pre-1.7 server list ping
func (p *Prober) legacy(ctx context.Context, host string, port int) (serverStatus, error) {
	conn, err := p.dial(ctx, "tcp", host, port)
	if err != nil {
		return serverStatus{}, err
	}
	defer conn.Close()

	if _, err := conn.Write(legacyPing); err != nil {
		return serverStatus{}, fmt.Errorf("send legacy ping: %w", err)
	}
	if err := conn.SetReadDeadline(readDeadline(ctx, p.cfg.LegacyReadTimeout)); err != nil {
		return serverStatus{}, err
	}

	resp, err := readLegacyResponse(conn)
	if err != nil {
		return serverStatus{}, err
	}
	return parseLegacy(resp)
}

// readLegacyResponse reads until the declared string length is available,
// the peer closes, or 1 KiB has been read.
func readLegacyResponse(r io.Reader) ([]byte, error) {
	buf := make([]byte, 0, legacyMaxResponse)
	chunk := make([]byte, legacyMaxResponse)
	for len(buf) < legacyMaxResponse {
		n, err := r.Read(chunk[:legacyMaxResponse-len(buf)])
		buf = append(buf, chunk[:n]...)
		if len(buf) >= 3 && len(buf) >= 3+int(binary.BigEndian.Uint16(buf[1:3]))*2 {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) || len(buf) > 0 {
				break
			}
			return nil, fmt.Errorf("read legacy response: %w", err)
		}
	}
	return buf, nil
}

// parseLegacy decodes 0xFF [u16 length in chars] [UTF-16BE string] where the
// string is NUL separated: marker, protocol, version, motd, online, max.
func parseLegacy(resp []byte) (serverStatus, error) {
	if len(resp) < 3 {
		return serverStatus{}, fmt.Errorf("legacy response too short: %d bytes", len(resp))
	}
	if resp[0] != 0xFF {
		return serverStatus{}, fmt.Errorf("unexpected legacy packet id 0x%02x", resp[0])
	}

	end := 3 + int(binary.BigEndian.Uint16(resp[1:3]))*2
	if end > len(resp) {
		end = len(resp)
	}
	data := resp[3:end]
	if len(data)%2 != 0 {
		return serverStatus{}, errors.New("truncated UTF-16 payload")
	}

	decoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return serverStatus{}, fmt.Errorf("decode UTF-16BE: %w", err)
	}

	fields := strings.Split(string(decoded), "\x00")
	if len(fields) < 5 {
		return serverStatus{}, fmt.Errorf("legacy response has %d fields, need 5", len(fields))
	}

	online, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil {
		return serverStatus{}, fmt.Errorf("parse online players: %w", err)
	}
	st := serverStatus{Online: online}
	if len(fields) > 5 {
		maxPlayers, err := strconv.Atoi(strings.TrimSpace(fields[5]))
		if err != nil {
			return serverStatus{}, fmt.Errorf("parse max players: %w", err)
		}
		st.Max = maxPlayers
	}
	return st, nil
}
