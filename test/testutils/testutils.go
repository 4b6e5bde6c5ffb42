package testutils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	. "github.com/onsi/gomega"
)

func GenerateRandomUUID() uuid.UUID {
	id, err := uuid.NewRandom()
	Expect(err).NotTo(HaveOccurred())
	return id
}

const rsaBitSize = 2048

func GenerateKey() *rsa.PrivateKey {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaBitSize)
	Expect(err).NotTo(HaveOccurred())
	return privateKey
}

// WritePublicKeyFile stores publicKey as a PKCS1 PEM file and returns its path.
func WritePublicKeyFile(publicKey *rsa.PublicKey) (filePath string, err error) {
	file, err := os.CreateTemp("", "fleet-live-public-key*.pem")
	if err != nil {
		return
	}
	defer file.Close()
	serializedKey := x509.MarshalPKCS1PublicKey(publicKey)
	err = pem.Encode(file, &pem.Block{Type: "RSA PUBLIC KEY", Bytes: serializedKey})
	filePath = file.Name()
	return
}

// SignToken issues an RS256 token for subject with role, valid for an hour.
func SignToken(privateKey *rsa.PrivateKey, subject string, role string) string {
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
	Expect(err).NotTo(HaveOccurred())
	return token
}
