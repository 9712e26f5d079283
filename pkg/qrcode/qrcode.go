// Package qrcode renders provisioning URIs as PNG QR codes for
// authenticator apps to scan.
package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent             = errors.New("content cannot be empty")
	ErrInvalidSize              = errors.New("qr code size out of range")
	ErrorFailedToGenerateQRCode = errors.New("failed to generate QR code")
)

const (
	DefaultSize = 256
	MaxSize     = 2048
)

type config struct {
	size  int
	level skipqrcode.RecoveryLevel
}

// Option configures QR rendering.
type Option func(*config)

// WithSize sets the image edge in pixels. Zero keeps the default.
func WithSize(px int) Option {
	return func(c *config) {
		if px != 0 {
			c.size = px
		}
	}
}

// WithHighRecovery raises error correction, useful when the code is printed
// or photographed from another screen.
func WithHighRecovery() Option {
	return func(c *config) { c.level = skipqrcode.High }
}

// PNG encodes content into a PNG image.
func PNG(content string, opts ...Option) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	cfg := config{size: DefaultSize, level: skipqrcode.Medium}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.size < 0 || cfg.size > MaxSize {
		return nil, ErrInvalidSize
	}

	png, err := skipqrcode.Encode(content, cfg.level, cfg.size)
	if err != nil {
		return nil, errors.Join(ErrorFailedToGenerateQRCode, err)
	}
	return png, nil
}

// DataURI returns the PNG as a data:image/png;base64 URI the mobile client
// can hand straight to an image view.
func DataURI(content string, opts ...Option) (string, error) {
	png, err := PNG(content, opts...)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
