package postgres

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// fakeBackend speaks the startup handshake (no TLS, no password) and the
// simple query protocol. Each query is answered by respond, followed by
// ReadyForQuery.
type fakeBackend struct {
	ln      net.Listener
	respond func(query string) []pgproto3.BackendMessage
	wg      sync.WaitGroup

	mu      sync.Mutex
	queries []string
}

func newFakeBackend(t *testing.T, respond func(query string) []pgproto3.BackendMessage) *fakeBackend {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fb := &fakeBackend{ln: ln, respond: respond}
	fb.wg.Add(1)
	go fb.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		fb.wg.Wait()
	})
	return fb
}

func (fb *fakeBackend) profile(name string) domain.ConnectionProfile {
	addr := fb.ln.Addr().(*net.TCPAddr)
	return domain.ConnectionProfile{Name: name, Host: "127.0.0.1", Port: addr.Port, Database: "app", Username: "postgres", Password: "secret"}
}

func (fb *fakeBackend) received() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.queries...)
}

func (fb *fakeBackend) serve() {
	defer fb.wg.Done()
	for {
		c, err := fb.ln.Accept()
		if err != nil {
			return
		}
		fb.wg.Add(1)
		go func() {
			defer fb.wg.Done()
			defer c.Close()
			_ = c.SetDeadline(time.Now().Add(10 * time.Second))
			fb.handle(c)
		}()
	}
}

func (fb *fakeBackend) handle(c net.Conn) {
	be := pgproto3.NewBackend(c, c)
	for {
		msg, err := be.ReceiveStartupMessage()
		if err != nil {
			return
		}
		if _, ok := msg.(*pgproto3.SSLRequest); ok {
			if _, err := c.Write([]byte("N")); err != nil {
				return
			}
			continue
		}
		if _, ok := msg.(*pgproto3.StartupMessage); !ok {
			return
		}
		break
	}
	be.Send(&pgproto3.AuthenticationOk{})
	be.Send(&pgproto3.ParameterStatus{Name: "client_encoding", Value: "UTF8"})
	be.Send(&pgproto3.ParameterStatus{Name: "standard_conforming_strings", Value: "on"})
	be.Send(&pgproto3.ParameterStatus{Name: "server_version", Value: "16.0"})
	be.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
	if be.Flush() != nil {
		return
	}
	for {
		msg, err := be.Receive()
		if err != nil {
			return
		}
		q, ok := msg.(*pgproto3.Query)
		if !ok {
			return
		}
		if q.String == "-- ping" {
			be.Send(&pgproto3.EmptyQueryResponse{})
		} else {
			fb.mu.Lock()
			fb.queries = append(fb.queries, q.String)
			fb.mu.Unlock()
			for _, out := range fb.respond(q.String) {
				be.Send(out)
			}
		}
		be.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
		if be.Flush() != nil {
			return
		}
	}
}

type wireColumn struct {
	name string
	oid  uint32
}

func rowDescription(cols ...wireColumn) *pgproto3.RowDescription {
	fields := make([]pgproto3.FieldDescription, len(cols))
	for i, c := range cols {
		fields[i] = pgproto3.FieldDescription{
			Name:         []byte(c.name),
			DataTypeOID:  c.oid,
			DataTypeSize: -1,
			TypeModifier: -1,
			Format:       pgtype.TextFormatCode,
		}
	}
	return &pgproto3.RowDescription{Fields: fields}
}

// dataRow builds a text-format row; a nil pointer is SQL NULL.
func dataRow(values ...*string) *pgproto3.DataRow {
	raw := make([][]byte, len(values))
	for i, v := range values {
		if v != nil {
			raw[i] = []byte(*v)
		}
	}
	return &pgproto3.DataRow{Values: raw}
}

func cell(s string) *string { return &s }

func selectResult(cols []wireColumn, rows ...*pgproto3.DataRow) []pgproto3.BackendMessage {
	out := []pgproto3.BackendMessage{rowDescription(cols...)}
	for _, r := range rows {
		out = append(out, r)
	}
	return append(out, &pgproto3.CommandComplete{CommandTag: []byte("SELECT " + strconv.Itoa(len(rows)))})
}

func commandComplete(tag string) *pgproto3.CommandComplete {
	return &pgproto3.CommandComplete{CommandTag: []byte(tag)}
}

func wireError(code, message string) *pgproto3.ErrorResponse {
	return &pgproto3.ErrorResponse{Severity: "ERROR", SeverityUnlocalized: "ERROR", Code: code, Message: message}
}
