package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/skip2/go-qrcode"
)

// TicketClaim is the payload embedded in a pickup QR code. Tickets are
// only issued for bookings an admin has marked paid; the claim is shown at
// the check counter outside the hall.
type TicketClaim struct {
	UserEmail string    `json:"user_email"`
	Movie     string    `json:"movie"`
	Showtime  string    `json:"showtime"`
	Count     int       `json:"count"`
	BookedAt  time.Time `json:"booked_at"`
	IssuedAt  time.Time `json:"issued_at"`
}

type TicketGenerator struct {
	secret []byte
}

func NewTicketGenerator(secret string) *TicketGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &TicketGenerator{secret: hashed[:]}
}

// GenerateEncryptedQR encodes the claim as an AES-encrypted QR PNG.
func (g *TicketGenerator) GenerateEncryptedQR(claim TicketClaim) ([]byte, error) {
	data, err := json.Marshal(claim)
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// DecodeClaim reverses the encryption, for counter-side verification.
func (g *TicketGenerator) DecodeClaim(encoded string) (*TicketClaim, error) {
	data, err := decryptAES(encoded, g.secret)
	if err != nil {
		return nil, err
	}

	var claim TicketClaim
	if err := json.Unmarshal(data, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

// EncryptClaim exposes the encrypted text form without the QR rendering,
// used by the verification round trip.
func (g *TicketGenerator) EncryptClaim(claim TicketClaim) (string, error) {
	data, err := json.Marshal(claim)
	if err != nil {
		return "", err
	}
	return encryptAES(data, g.secret)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(encoded string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])

	return data, nil
}
