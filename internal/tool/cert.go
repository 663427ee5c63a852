package tool

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

type CertificateRequest struct {
	Organization string
	CommonName   string
	Hostnames    []string
	Validity     time.Duration
}

// EnsureTlsCertificate generates a self-signed key pair unless both files already exist.
// It returns true when new files were written.
func EnsureTlsCertificate(req CertificateRequest, keyFilename, certFilename string) (bool, error) {
	existCert, err := IsFileExists(certFilename)
	if err != nil {
		return false, fmt.Errorf("unable to access %s: %w", certFilename, err)
	}
	existKey, err := IsFileExists(keyFilename)
	if err != nil {
		return false, fmt.Errorf("unable to access %s: %w", keyFilename, err)
	}
	if existCert && existKey {
		return false, nil
	}
	if err = GenerateTlsCertificate(req, keyFilename, certFilename); err != nil {
		return false, err
	}
	return true, nil
}

func GenerateTlsCertificate(req CertificateRequest, keyFilename, certFilename string) error {
	validity := req.Validity
	if validity <= 0 {
		validity = 10 * 365 * 24 * time.Hour
	}
	notBefore := time.Now()
	notAfter := notBefore.Add(validity)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return err
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{req.Organization},
			CommonName:   req.CommonName,
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range req.Hostnames {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return err
	}

	keyBytes, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return err
	}
	if err = pemToFile(keyFilename, "EC PRIVATE KEY", keyBytes, 0600); err != nil {
		return err
	}
	return pemToFile(certFilename, "CERTIFICATE", derBytes, 0644)
}

func pemToFile(filename string, blockType string, der []byte, perm os.FileMode) error {
	out, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if err = pem.Encode(out, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
