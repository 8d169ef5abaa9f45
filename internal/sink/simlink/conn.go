// Package simlink implements a loopback TCP sink.Sink used by
// "hidrelay bridge demo" and by integration tests to stand in for a real
// BLE link. Every frame is AEAD-sealed and length-prefixed the same way
// VIIPER seals its own management protocol connections.
package simlink

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// maxFrameSize bounds a single sealed frame; reports are at most a few
// dozen bytes, so this only guards against a corrupt or hostile peer.
const maxFrameSize = 64 * 1024

// sealedConn wraps a net.Conn so that every Write is sealed as one AEAD
// frame and every Read transparently opens and reassembles them.
type sealedConn struct {
	net.Conn
	aead    cipher.AEAD
	sendCtr uint64
	recvBuf bytes.Buffer
	mu      sync.Mutex
}

func wrap(conn net.Conn, key []byte) (*sealedConn, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &sealedConn{Conn: conn, aead: aead}, nil
}

func (s *sealedConn) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[4:], s.sendCtr)
	s.sendCtr++

	ct := s.aead.Seal(nil, nonce, p, nil)
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(nonce)+len(ct)))

	if _, err := s.Conn.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := s.Conn.Write(nonce); err != nil {
		return 0, err
	}
	if _, err := s.Conn.Write(ct); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *sealedConn) Read(p []byte) (int, error) {
	if s.recvBuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
			return 0, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length > maxFrameSize {
			return 0, io.ErrUnexpectedEOF
		}
		pkt := make([]byte, length)
		if _, err := io.ReadFull(s.Conn, pkt); err != nil {
			return 0, err
		}
		nonce, ct := pkt[:chacha20poly1305.NonceSize], pkt[chacha20poly1305.NonceSize:]
		pt, err := s.aead.Open(nil, nonce, ct, nil)
		if err != nil {
			return 0, err
		}
		s.recvBuf.Write(pt)
	}
	return s.recvBuf.Read(p)
}
