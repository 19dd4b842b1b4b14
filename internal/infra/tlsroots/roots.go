// Package tlsroots assembles the trusted certificate material a client
// presents to socket.WithTLSConfig: root CAs from PEM files or
// directories, optionally on top of the system pool, and a client
// certificate pair that reloads when its files change.
package tlsroots

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoCertsFound means PEM input held no CERTIFICATE block.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found")

// Anchor describes one root added on top of the base pool.
type Anchor struct {
	Subject  string
	NotAfter time.Time
	Source   string // file path, or "pem" for in-memory input
}

// Pool is the set of roots a client trusts.
type Pool struct {
	certs   *x509.CertPool
	anchors []Anchor
	seen    map[[sha256.Size]byte]struct{}
}

func newPool(base *x509.CertPool) *Pool {
	return &Pool{certs: base, seen: make(map[[sha256.Size]byte]struct{})}
}

// NewSystemPool starts from the platform roots, or from nothing where
// the platform has none.
func NewSystemPool() *Pool {
	base, err := x509.SystemCertPool()
	if err != nil {
		base = x509.NewCertPool()
	}
	return newPool(base)
}

// NewEmptyPool trusts nothing until roots are added.
func NewEmptyPool() *Pool {
	return newPool(x509.NewCertPool())
}

// AddCertFile adds every certificate in a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read %s: %w", path, err)
	}
	if err := p.addPEM(data, path); err != nil {
		return fmt.Errorf("%w (%s)", err, path)
	}
	return nil
}

// AddCertPEM adds every CERTIFICATE block in data; other blocks, such as
// keys in a combined bundle, are skipped.
func (p *Pool) AddCertPEM(data []byte) error {
	return p.addPEM(data, "pem")
}

func (p *Pool) addPEM(data []byte, source string) error {
	found := 0
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.add(cert, source)
		found++
	}
	if found == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// AddCert adds a parsed certificate.
func (p *Pool) AddCert(cert *x509.Certificate) {
	p.add(cert, "pem")
}

// add ignores a certificate the pool already holds, so a bundle listed
// both as ca_file and inside ca_dir counts once.
func (p *Pool) add(cert *x509.Certificate, source string) {
	sum := sha256.Sum256(cert.Raw)
	if _, dup := p.seen[sum]; dup {
		return
	}
	p.seen[sum] = struct{}{}
	p.certs.AddCert(cert)
	p.anchors = append(p.anchors, Anchor{
		Subject:  cert.Subject.String(),
		NotAfter: cert.NotAfter,
		Source:   source,
	})
}

// AddCertDir adds the .pem, .crt and .cer files in dir. Bad files are
// reported together once the good ones are in.
func (p *Pool) AddCertDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("tlsroots: read dir %s: %w", dir, err)
	}

	var errs []error
	files := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pem", ".crt", ".cer":
		default:
			continue
		}
		if err := p.AddCertFile(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		files++
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if files == 0 {
		return fmt.Errorf("%w in %s", ErrNoCertsFound, dir)
	}
	return nil
}

// Added is the number of distinct roots added on top of the base pool.
func (p *Pool) Added() int {
	return len(p.anchors)
}

// Anchors lists the added roots in the order they were added.
func (p *Pool) Anchors() []Anchor {
	return append([]Anchor(nil), p.anchors...)
}

// Expired returns the added roots no longer valid at now.
func (p *Pool) Expired(now time.Time) []Anchor {
	var out []Anchor
	for _, a := range p.anchors {
		if now.After(a.NotAfter) {
			out = append(out, a)
		}
	}
	return out
}

// Pool returns the x509 pool for tls.Config.RootCAs.
func (p *Pool) Pool() *x509.CertPool {
	return p.certs
}

// ClientTLSConfig trusts this pool. An empty serverName lets the socket
// fill in the endpoint host.
func (p *Pool) ClientTLSConfig(serverName string) *tls.Config {
	return &tls.Config{
		RootCAs:    p.certs,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}
}
