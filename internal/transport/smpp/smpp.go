// Package smpp implements transport.SimpleTransport over a minimal SMPP
// 3.4 client (submit_sm only) built directly on net.Conn. No Go SMPP
// client library was found anywhere across the reference corpus (see
// DESIGN.md); this is the one transport implemented against the standard
// library rather than a third-party dependency.
package smpp

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

const transportName = "smpp"

// SMPP 3.4 command IDs (relevant subset).
const (
	cmdBindTransmitter     uint32 = 0x00000002
	cmdBindTransmitterResp uint32 = 0x80000002
	cmdSubmitSM            uint32 = 0x00000004
	cmdSubmitSMResp        uint32 = 0x80000004
	cmdEnquireLink         uint32 = 0x00000015
	cmdEnquireLinkResp     uint32 = 0x80000015
)

const dialTimeout = 30 * time.Second

// Transport sends SMS via a raw SMPP bind. Credentials are
// "host:port:system_id:password"; contacts are E.164 phone numbers.
type Transport struct {
	mu    sync.Mutex
	binds map[string]*bind
}

// New builds an smpp Transport.
func New() *Transport {
	return &Transport{binds: map[string]*bind{}}
}

// Name implements transport.SimpleTransport.
func (t *Transport) Name() string { return transportName }

// SupportsContact implements transport.SimpleTransport.
func (t *Transport) SupportsContact(contactType string) bool { return contactType == "tel" }

// HasContacts implements transport.SimpleTransport.
func (t *Transport) HasContacts() bool { return true }

// SendMessage implements transport.SimpleTransport.
func (t *Transport) SendMessage(ctx context.Context, credential model.Credential, contact model.Contact, message engine.Message, _ *engine.PipelineContext) error {
	b, err := t.bindFor(ctx, credential.Value)
	if err != nil {
		return fmt.Errorf("smpp: %w", err)
	}
	if err := b.submitSM(contact.Value, message.Content["body"]); err != nil {
		return fmt.Errorf("smpp: %w", engine.MarkTransient(err))
	}
	return nil
}

func (t *Transport) bindFor(ctx context.Context, credential string) (*bind, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b, ok := t.binds[credential]; ok {
		return b, nil
	}

	host, port, systemID, password, err := parseCredential(credential)
	if err != nil {
		return nil, err
	}

	b, err := dialBind(ctx, host, port, systemID, password)
	if err != nil {
		return nil, err
	}
	t.binds[credential] = b
	return b, nil
}

func parseCredential(raw string) (host string, port int, systemID, password string, err error) {
	parts := strings.SplitN(raw, ":", 4)
	if len(parts) != 4 {
		return "", 0, "", "", fmt.Errorf("%w: expected host:port:system_id:password", engine.ErrInvalidCredentialFormat)
	}
	p, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, "", "", fmt.Errorf("%w: invalid port %q", engine.ErrInvalidCredentialFormat, parts[1])
	}
	return parts[0], p, parts[2], parts[3], nil
}

// bind is one established SMPP transmitter session.
type bind struct {
	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
	seq  uint32
}

func dialBind(ctx context.Context, host string, port int, systemID, password string) (*bind, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, engine.MarkTransient(fmt.Errorf("dial %s:%d: %w", host, port, err))
	}

	b := &bind{conn: conn, r: bufio.NewReader(conn)}

	body := encodeCString(systemID)
	body = append(body, encodeCString(password)...)
	body = append(body, 0x00)       // system_type (empty)
	body = append(body, 0x34)       // interface_version 3.4
	body = append(body, 0x00, 0x00) // addr_ton, addr_npi
	body = append(body, 0x00)       // address_range (empty)

	if err := b.send(cmdBindTransmitter, body); err != nil {
		conn.Close()
		return nil, err
	}
	resp, err := b.recv()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.commandID != cmdBindTransmitterResp || resp.status != 0 {
		conn.Close()
		return nil, fmt.Errorf("bind_transmitter failed: status=%d", resp.status)
	}
	return b, nil
}

func (b *bind) submitSM(destAddr, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	body := []byte{0x00}            // service_type (empty)
	body = append(body, 0x00, 0x00) // source_addr_ton, source_addr_npi
	body = append(body, encodeCString("")...)
	body = append(body, 0x01, 0x01) // dest_addr_ton=international, dest_addr_npi=E.164
	body = append(body, encodeCString(destAddr)...)
	body = append(body, 0x00)       // esm_class
	body = append(body, 0x00)       // protocol_id
	body = append(body, 0x00)       // priority_flag
	body = append(body, 0x00)       // schedule_delivery_time (empty)
	body = append(body, 0x00)       // validity_period (empty)
	body = append(body, 0x01, 0x00) // registered_delivery, replace_if_present
	body = append(body, 0x00)       // data_coding
	body = append(body, 0x00)       // sm_default_msg_id
	msg := []byte(text)
	if len(msg) > 254 {
		msg = msg[:254]
	}
	body = append(body, byte(len(msg)))
	body = append(body, msg...)

	if err := b.send(cmdSubmitSM, body); err != nil {
		return err
	}
	resp, err := b.recv()
	if err != nil {
		return err
	}
	if resp.commandID != cmdSubmitSMResp || resp.status != 0 {
		return fmt.Errorf("submit_sm failed: status=%d", resp.status)
	}
	return nil
}

func (b *bind) send(commandID uint32, body []byte) error {
	b.seq++
	header := make([]byte, 16)
	binary.BigEndian.PutUint32(header[0:4], uint32(16+len(body)))
	binary.BigEndian.PutUint32(header[4:8], commandID)
	binary.BigEndian.PutUint32(header[8:12], 0) // command_status
	binary.BigEndian.PutUint32(header[12:16], b.seq)
	_, err := b.conn.Write(append(header, body...))
	return err
}

type pdu struct {
	commandID uint32
	status    uint32
	seq       uint32
	body      []byte
}

func (b *bind) recv() (pdu, error) {
	header := make([]byte, 16)
	if _, err := readFull(b.r, header); err != nil {
		return pdu{}, err
	}
	length := binary.BigEndian.Uint32(header[0:4])
	p := pdu{
		commandID: binary.BigEndian.Uint32(header[4:8]),
		status:    binary.BigEndian.Uint32(header[8:12]),
		seq:       binary.BigEndian.Uint32(header[12:16]),
	}
	if length > 16 {
		p.body = make([]byte, length-16)
		if _, err := readFull(b.r, p.body); err != nil {
			return pdu{}, err
		}
	}
	return p, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		k, err := r.Read(buf[n:])
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func encodeCString(s string) []byte {
	return append([]byte(s), 0x00)
}
