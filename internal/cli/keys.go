package cli

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/signature"
)

// KeyPair is the output of keygen. Both keys are unpadded base64url; the
// private key is the 32-byte seed.
type KeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

func (k KeyPair) String() string {
	return fmt.Sprintf("Public key:  %s\nPrivate key: %s", k.PublicKey, k.PrivateKey)
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 signing key",
		Long: `Generate an Ed25519 key pair for signing messages.

Register the public key with "river key add" before signing with it.

Examples:
  river keygen
  river keygen --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := signature.GenerateKey(nil)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to generate key", err)
			}
			return rootOpts.formatter(cmd).Success(KeyPair{
				PublicKey:  message.EncodeBytes(pub),
				PrivateKey: message.EncodeBytes(priv.Seed()),
			})
		},
	}
}

// parsePrivateKey accepts a base64 seed (32 bytes) or full private key
// (64 bytes). A leading @ reads the key from a file.
func parsePrivateKey(s string) (ed25519.PrivateKey, error) {
	s, err := readArg(s)
	if err != nil {
		return nil, err
	}
	b, err := message.DecodeBytes(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	switch len(b) {
	case ed25519.SeedSize:
		return signature.KeyFromSeed(b)
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(b))
	}
}

func parsePublicKey(s string) ([]byte, error) {
	b, err := message.DecodeBytes(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return b, nil
}

// readArg returns s, or the contents of the file it names when it starts
// with @. "@-" reads stdin.
func readArg(s string) (string, error) {
	if !strings.HasPrefix(s, "@") {
		return s, nil
	}
	path := s[1:]
	var data []byte
	var err error
	if path == "-" {
		data, err = readAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
