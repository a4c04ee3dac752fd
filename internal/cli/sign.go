package cli

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rivervm/internal/address"
	"github.com/roach88/rivervm/internal/canon"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/signature"
)

// SignOptions holds flags for the sign command.
type SignOptions struct {
	*RootOptions
	Key       string
	RID       uint64
	Type      string
	Body      string
	Timestamp uint64
}

// SignedMessage is the json output of sign.
type SignedMessage struct {
	ID      string       `json:"id"`
	Message message.Wire `json:"message"`
}

// NewSignCommand creates the sign command.
func NewSignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Build and sign a message",
		Long: `Build a message, hash its canonical form and sign it.

The text output is the wire message, ready to place in a /messageBatch
request. The body is a JSON object; prefix with @ to read it from a file.

Examples:
  river sign --key $KEY --rid 1 --type CHANNEL_CREATE --body '{"uri":"ipfs://chan"}'
  river sign --key @key.txt --rid 1 --type ITEM_SUBMIT --body @submit.json --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "base64 private key or seed, or @file (required)")
	cmd.Flags().Uint64Var(&opts.RID, "rid", 0, "acting principal (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "message type, e.g. ITEM_SUBMIT (required)")
	cmd.Flags().StringVar(&opts.Body, "body", "{}", "JSON body or @file")
	cmd.Flags().Uint64Var(&opts.Timestamp, "timestamp", 0, "timestamp in milliseconds (default now)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("rid")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runSign(opts *SignOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	priv, err := parsePrivateKey(opts.Key)
	if err != nil {
		return badInput(f, "invalid key", err)
	}
	typ, err := message.ParseType(opts.Type)
	if err != nil {
		return badInput(f, "invalid type", err)
	}
	raw, err := readArg(opts.Body)
	if err != nil {
		return badInput(f, "invalid body", err)
	}
	v, err := canon.Decode([]byte(raw))
	if err != nil {
		return badInput(f, "invalid body", err)
	}
	body, ok := v.(canon.Object)
	if !ok {
		return badInput(f, "invalid body", fmt.Errorf("body must be a JSON object"))
	}

	ts := opts.Timestamp
	if ts == 0 {
		ts = uint64(time.Now().UnixMilli())
	}

	m, err := signMessage(priv, message.Data{RID: opts.RID, Timestamp: ts, Type: typ, Body: body})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to sign", err)
	}
	id, err := address.Of(m.Data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute id", err)
	}
	f.VerboseLog("id: %s", id)

	if opts.Format == "json" {
		return f.Success(SignedMessage{ID: id.String(), Message: message.ToWire(m)})
	}
	wire, err := json.Marshal(message.ToWire(m))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(wire))
	return nil
}

// signMessage hashes d and signs the hash with Ed25519ph.
func signMessage(priv ed25519.PrivateKey, d message.Data) (message.Message, error) {
	hash, err := address.HashData(d)
	if err != nil {
		return message.Message{}, err
	}
	sig, err := signature.Sign(message.SignatureEd25519, priv, hash)
	if err != nil {
		return message.Message{}, err
	}
	return message.Message{
		Signer:             []byte(priv.Public().(ed25519.PublicKey)),
		Data:               d,
		HashAlgorithm:      message.HashBlake3,
		Hash:               hash,
		SignatureAlgorithm: message.SignatureEd25519,
		Signature:          sig,
	}, nil
}

func badInput(f *OutputFormatter, msg string, err error) error {
	if f.Format == "json" {
		_ = f.Error(ErrCodeBadInput, msg, err.Error())
	}
	return WrapExitError(ExitCommandError, msg, err)
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
