package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func verify(pool *Pool, c testCert, dnsName string) error {
	_, err := c.cert.Verify(x509.VerifyOptions{Roots: pool.Pool(), DNSName: dnsName})
	return err
}

func TestNewSystemPool(t *testing.T) {
	pool := NewSystemPool()
	if pool.Pool() == nil {
		t.Fatal("Pool() returned nil")
	}
	if pool.Added() != 0 {
		t.Errorf("Added() = %d, want 0", pool.Added())
	}
}

func TestAddCertPEM(t *testing.T) {
	c := newTestCert(t, "kvwire test CA", "storage.local")
	pool := NewEmptyPool()

	if err := verify(pool, c, "storage.local"); err == nil {
		t.Fatal("empty pool should not trust the certificate")
	}
	if err := pool.AddCertPEM(c.certPEM); err != nil {
		t.Fatalf("AddCertPEM() error = %v", err)
	}
	if err := verify(pool, c, "storage.local"); err != nil {
		t.Errorf("pool should trust the certificate: %v", err)
	}
	if pool.Added() != 1 {
		t.Errorf("Added() = %d, want 1", pool.Added())
	}
}

func TestAddCertPEM_SkipsKeys(t *testing.T) {
	c := newTestCert(t, "ca", "storage.local")
	pool := NewEmptyPool()

	bundle := append(append([]byte{}, c.keyPEM...), c.certPEM...)
	if err := pool.AddCertPEM(bundle); err != nil {
		t.Fatalf("AddCertPEM() error = %v", err)
	}
	if pool.Added() != 1 {
		t.Errorf("Added() = %d, want 1", pool.Added())
	}
}

func TestAddCertPEM_NoCerts(t *testing.T) {
	pool := NewEmptyPool()

	for _, in := range [][]byte{nil, []byte("not a certificate")} {
		if err := pool.AddCertPEM(in); !errors.Is(err, ErrNoCertsFound) {
			t.Errorf("AddCertPEM(%q) error = %v, want ErrNoCertsFound", in, err)
		}
	}
}

func TestAddCertPEM_InvalidCert(t *testing.T) {
	invalid := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})
	if err := NewEmptyPool().AddCertPEM(invalid); err == nil {
		t.Error("AddCertPEM() expected error for invalid certificate")
	}
}

func TestAddCertFile(t *testing.T) {
	c := newTestCert(t, "ca", "storage.local")
	path := writeFile(t, t.TempDir(), "ca.pem", c.certPEM)

	pool := NewEmptyPool()
	if err := pool.AddCertFile(path); err != nil {
		t.Fatalf("AddCertFile() error = %v", err)
	}
	if err := verify(pool, c, "storage.local"); err != nil {
		t.Errorf("verify: %v", err)
	}

	if err := pool.AddCertFile(filepath.Join(t.TempDir(), "missing.pem")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("AddCertFile(missing) error = %v", err)
	}
}

func TestAddCertDir(t *testing.T) {
	dir := t.TempDir()
	a := newTestCert(t, "ca-a", "a.storage.local")
	b := newTestCert(t, "ca-b", "b.storage.local")
	writeFile(t, dir, "a.pem", a.certPEM)
	writeFile(t, dir, "b.CRT", b.certPEM)
	writeFile(t, dir, "notes.txt", []byte("ignored"))
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o700); err != nil {
		t.Fatal(err)
	}

	pool := NewEmptyPool()
	if err := pool.AddCertDir(dir); err != nil {
		t.Fatalf("AddCertDir() error = %v", err)
	}
	if pool.Added() != 2 {
		t.Errorf("Added() = %d, want 2", pool.Added())
	}
	if err := verify(pool, b, "b.storage.local"); err != nil {
		t.Errorf("verify b: %v", err)
	}
}

func TestAddCertDir_Errors(t *testing.T) {
	empty := t.TempDir()
	if err := NewEmptyPool().AddCertDir(empty); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("empty dir error = %v, want ErrNoCertsFound", err)
	}

	bad := t.TempDir()
	good := newTestCert(t, "ca", "storage.local")
	writeFile(t, bad, "good.pem", good.certPEM)
	writeFile(t, bad, "bad.pem", []byte("nope"))

	pool := NewEmptyPool()
	if err := pool.AddCertDir(bad); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("bad file error = %v, want ErrNoCertsFound", err)
	}
	if pool.Added() != 1 {
		t.Errorf("good file should still be added, Added() = %d", pool.Added())
	}

	if err := NewEmptyPool().AddCertDir(filepath.Join(empty, "missing")); err == nil {
		t.Error("missing dir should fail")
	}
}

func TestClientTLSConfig(t *testing.T) {
	pool := NewEmptyPool()
	cfg := pool.ClientTLSConfig("storage.local")

	if cfg.RootCAs != pool.Pool() {
		t.Error("RootCAs should be the pool")
	}
	if cfg.ServerName != "storage.local" {
		t.Errorf("ServerName = %q", cfg.ServerName)
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x", cfg.MinVersion)
	}
}

func TestPool_Duplicates(t *testing.T) {
	c := newTestCert(t, "kvwire test CA", "storage.local")
	dir := t.TempDir()
	path := writeFile(t, dir, "ca.pem", c.certPEM)

	pool := NewEmptyPool()
	if err := pool.AddCertFile(path); err != nil {
		t.Fatal(err)
	}
	if err := pool.AddCertDir(dir); err != nil {
		t.Fatalf("AddCertDir() with an already-added root: %v", err)
	}
	pool.AddCert(c.cert)

	if pool.Added() != 1 {
		t.Errorf("Added() = %d, want 1", pool.Added())
	}
}

func TestPool_Anchors(t *testing.T) {
	a := newTestCert(t, "ca-a", "a.storage.local")
	b := newTestCert(t, "ca-b", "b.storage.local")
	path := writeFile(t, t.TempDir(), "a.pem", a.certPEM)

	pool := NewEmptyPool()
	if err := pool.AddCertFile(path); err != nil {
		t.Fatal(err)
	}
	if err := pool.AddCertPEM(b.certPEM); err != nil {
		t.Fatal(err)
	}

	anchors := pool.Anchors()
	if len(anchors) != 2 {
		t.Fatalf("Anchors() = %+v", anchors)
	}
	if anchors[0].Subject != "CN=ca-a" || anchors[0].Source != path {
		t.Errorf("anchors[0] = %+v", anchors[0])
	}
	if anchors[1].Subject != "CN=ca-b" || anchors[1].Source != "pem" {
		t.Errorf("anchors[1] = %+v", anchors[1])
	}
	if !anchors[0].NotAfter.Equal(a.cert.NotAfter) {
		t.Errorf("NotAfter = %v, want %v", anchors[0].NotAfter, a.cert.NotAfter)
	}

	anchors[0].Subject = "changed"
	if pool.Anchors()[0].Subject != "CN=ca-a" {
		t.Error("Anchors() should return a copy")
	}
}

func TestPool_Expired(t *testing.T) {
	live := newTestCert(t, "live", "storage.local")
	dead := issueTestCert(t, "dead", "storage.local", time.Now().Add(-time.Hour))

	pool := NewEmptyPool()
	if err := pool.AddCertPEM(append(append([]byte{}, live.certPEM...), dead.certPEM...)); err != nil {
		t.Fatal(err)
	}

	expired := pool.Expired(time.Now())
	if len(expired) != 1 || expired[0].Subject != "CN=dead" {
		t.Errorf("Expired() = %+v", expired)
	}
	if got := pool.Expired(time.Now().Add(48 * time.Hour)); len(got) != 2 {
		t.Errorf("Expired(+48h) = %d anchors, want 2", len(got))
	}
}
