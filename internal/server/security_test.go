package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeyPair writes a self-signed localhost certificate and its key to dir.
func writeKeyPair(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "appauth-server test"},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestNewSecurityLayer(t *testing.T) {
	t.Parallel()

	_, isTLS := NewSecurityLayer(true, "c.crt", "k.key").(*TLSListener)
	assert.True(t, isTLS)

	_, isPlain := NewSecurityLayer(false, "c.crt", "k.key").(*PlainListener)
	assert.True(t, isPlain, "certificate paths are ignored without TLS")
}

func TestTLSListener_Handshake(t *testing.T) {
	t.Parallel()

	certFile, keyFile := writeKeyPair(t, t.TempDir())
	ln, err := NewTLSListener(certFile, keyFile).Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_, _ = io.Copy(conn, conn)
			}()
		}
	}()

	tests := []struct {
		name       string
		maxVersion uint16
		wantErr    bool
	}{
		{name: "TLS 1.3", maxVersion: tls.VersionTLS13},
		{name: "TLS 1.2", maxVersion: tls.VersionTLS12},
		{name: "TLS 1.1 is refused", maxVersion: tls.VersionTLS11, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := tls.Dial("tcp", ln.Addr().String(), &tls.Config{
				InsecureSkipVerify: true, //nolint:gosec // self-signed test certificate
				MinVersion:         tls.VersionTLS10,
				MaxVersion:         tt.maxVersion,
			})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer conn.Close()

			_, err = conn.Write([]byte("Bearer token"))
			require.NoError(t, err)
			buf := make([]byte, len("Bearer token"))
			_, err = io.ReadFull(conn, buf)
			require.NoError(t, err)
			assert.Equal(t, "Bearer token", string(buf))
		})
	}
}

func TestTLSListener_Listen_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewTLSListener("missing.crt", "missing.key").Listen("tcp", "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load TLS certificate")

	certFile, keyFile := writeKeyPair(t, t.TempDir())
	_, err = NewTLSListener(certFile, keyFile).Listen("tcp", "invalid-address")
	require.Error(t, err)
}

func TestPlainListener_Listen(t *testing.T) {
	t.Parallel()

	ln, err := NewPlainListener().Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	assert.IsType(t, &net.TCPListener{}, ln)

	_, err = NewPlainListener().Listen("tcp", "invalid-address")
	require.Error(t, err)
}
