package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// AdminOptions holds flags shared by the principal and key commands.
type AdminOptions struct {
	*RootOptions
	DB DBOptions
}

// AdminResult reports a registry change.
type AdminResult struct {
	Action string `json:"action"`
	RID    uint64 `json:"rid,string"`
	Key    string `json:"key,omitempty"`
}

func (r AdminResult) String() string {
	if r.Key != "" {
		return fmt.Sprintf("✓ %s: principal %d key %s", r.Action, r.RID, r.Key)
	}
	return fmt.Sprintf("✓ %s: principal %d", r.Action, r.RID)
}

// NewPrincipalCommand creates the principal command group.
func NewPrincipalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "principal",
		Short: "Manage registered principals",
	}

	opts := &AdminOptions{RootOptions: rootOpts}
	add := &cobra.Command{
		Use:   "add <rid>",
		Short: "Register a principal",
		Long: `Register a principal id. Registering an existing principal is a no-op.

Examples:
  river principal add 1 --db river.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(opts, cmd, "principal added", args[0], "", func(ctx context.Context, l ledger, rid uint64, _ []byte) error {
				return l.AddPrincipal(ctx, rid)
			})
		},
	}
	opts.DB.addFlags(add)
	cmd.AddCommand(add)

	return cmd
}

// NewKeyCommand creates the key command group.
func NewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage signer keys",
	}

	addOpts := &AdminOptions{RootOptions: rootOpts}
	add := &cobra.Command{
		Use:   "add <rid> <public-key>",
		Short: "Authorize a key to sign for a principal",
		Long: `Authorize a base64 Ed25519 public key to sign for a registered principal.
A revoked key cannot be re-added.

Examples:
  river key add 1 Zm9v... --db river.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(addOpts, cmd, "key added", args[0], args[1], func(ctx context.Context, l ledger, rid uint64, key []byte) error {
				return l.AddKey(ctx, rid, key)
			})
		},
	}
	addOpts.DB.addFlags(add)

	revokeOpts := &AdminOptions{RootOptions: rootOpts}
	revoke := &cobra.Command{
		Use:   "revoke <rid> <public-key>",
		Short: "Revoke a signer key",
		Long: `Revoke a key. Messages signed with it fail verification from now on.

Examples:
  river key revoke 1 Zm9v... --db river.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(revokeOpts, cmd, "key revoked", args[0], args[1], func(ctx context.Context, l ledger, rid uint64, key []byte) error {
				return l.RevokeKey(ctx, rid, key)
			})
		},
	}
	revokeOpts.DB.addFlags(revoke)

	cmd.AddCommand(add, revoke)
	return cmd
}

func runAdmin(opts *AdminOptions, cmd *cobra.Command, action, ridArg, keyArg string,
	apply func(ctx context.Context, l ledger, rid uint64, key []byte) error) error {
	f := opts.formatter(cmd)

	rid, err := strconv.ParseUint(ridArg, 10, 64)
	if err != nil {
		return badInput(f, "invalid rid", err)
	}
	var key []byte
	if keyArg != "" {
		if key, err = parsePublicKey(keyArg); err != nil {
			return badInput(f, "invalid key", err)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openLedger(ctx, opts.DB.URL, opts.DB.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()
	f.VerboseLog("using %s backend", db.Backend)

	if err := apply(ctx, db, rid, key); err != nil {
		return f.Fail(ExitCommandError, action+" failed", err, nil)
	}

	return f.Success(AdminResult{Action: action, RID: rid, Key: keyArg})
}
