package command

import (
	"bufio"
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvwire-go/pkg/resp"
)

// kvServer is a loopback key-value server speaking the wire protocol.
type kvServer struct {
	ln   net.Listener
	port int

	mu    sync.Mutex
	data  map[string]string
	seen  [][]string
	conns []net.Conn
}

func newKVServer(t *testing.T) *kvServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return startKVServer(t, ln)
}

// newTLSKVServer starts a TLS server and returns it with the path of a
// PEM file trusting its certificate.
func newTLSKVServer(t *testing.T) (*kvServer, string) {
	t.Helper()
	cert, caPEM := selfSignedServerCert(t)
	caFile := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caFile, caPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		t.Fatal(err)
	}
	return startKVServer(t, ln), caFile
}

func startKVServer(t *testing.T, ln net.Listener) *kvServer {
	s := &kvServer{
		ln:   ln,
		port: ln.Addr().(*net.TCPAddr).Port,
		data: make(map[string]string),
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
			go s.serve(conn)
		}
	}()
	return s
}

func (s *kvServer) serve(conn net.Conn) {
	defer conn.Close()
	rd := bufio.NewReader(conn)
	wr := bufio.NewWriter(conn)
	for {
		args, err := resp.ReadCommand(rd)
		if err != nil {
			return
		}
		s.handle(args, wr)
		if err := wr.Flush(); err != nil {
			return
		}
	}
}

func (s *kvServer) handle(args [][]byte, wr *bufio.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = string(a)
	}
	s.seen = append(s.seen, strs)

	switch resp.CommandName(args) {
	case "PING":
		_ = resp.WriteSimpleString(wr, "PONG")
	case "GET":
		v, ok := s.data[strs[1]]
		if !ok {
			_ = resp.WriteNullBulk(wr)
			return
		}
		_ = resp.WriteBulkString(wr, v)
	case "SET":
		s.data[strs[1]] = strs[2]
		_ = resp.WriteSimpleString(wr, "OK")
	case "DEL":
		var n int64
		for _, k := range strs[1:] {
			if _, ok := s.data[k]; ok {
				delete(s.data, k)
				n++
			}
		}
		_ = resp.WriteInteger(wr, n)
	default:
		_ = resp.WriteError(wr, "ERR unknown command")
	}
}

// closeAll drops every accepted connection.
func (s *kvServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
}

func (s *kvServer) commands() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.seen...)
}

func (s *kvServer) countCommand(name string) int {
	n := 0
	for _, cmd := range s.commands() {
		if strings.EqualFold(cmd[0], name) {
			n++
		}
	}
	return n
}

// args returns the flags pointing at s.
func (s *kvServer) args() []string {
	return []string{"--host", "127.0.0.1", "--port", strconv.Itoa(s.port)}
}

func selfSignedServerCert(t *testing.T) (tls.Certificate, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "kvwire-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key},
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// closedPort returns a loopback port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

type result struct {
	stdout string
	stderr string
	err    error
}

// runApp runs kvwire-cli with args in an isolated HOME.
func runApp(t *testing.T, args ...string) result {
	t.Helper()
	isolateHome(t)
	return runAppContext(context.Background(), args...)
}

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

// runAppContext runs kvwire-cli with args under ctx. It does not touch
// the environment, so it may run on another goroutine.
func runAppContext(ctx context.Context, args ...string) result {

	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.RunContext(ctx, append([]string{AppName}, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
