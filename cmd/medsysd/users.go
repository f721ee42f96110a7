package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"medsys.org/internal/accounts"
	"medsys.org/internal/auth"
)

// NewHashPasswordCmd prints a hash for the password given as argument or on
// stdin.
func NewHashPasswordCmd() *cobra.Command {
	var algo string
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Hash a password with bcrypt or argon2id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			hasher, err := auth.HasherFor(algo)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(password)
			if err != nil {
				return oops.Code("HASH_FAILED").Wrap(err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().StringVar(&algo, "algo", "bcrypt", "bcrypt or argon2id")
	return cmd
}

func passwordArg(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", auth.ErrEmptyPassword
	}
	return line, nil
}

// NewCreateUserCmd provisions an account directly against the database.
func NewCreateUserCmd() *cobra.Command {
	var in accounts.NewAccount
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account with the given roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			hasher, err := auth.HasherFor(cfg.Auth.Hasher)
			if err != nil {
				return err
			}
			svc, err := accounts.NewService(store, accounts.WithHasher(hasher))
			if err != nil {
				return err
			}
			out, err := svc.CreateAccount(ctx, in)
			if err != nil {
				return oops.Code("CREATE_USER_FAILED").Wrap(err)
			}
			if !out.OK() {
				return oops.Code("CREATE_USER_REJECTED").With("kind", out.Kind.String()).Errorf("%s", out.Message)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) roles=%s\n", out.Data.Email, out.Data.ID, strings.Join(out.Data.Roles, ","))
			return err
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	cmd.Flags().StringSliceVar(&in.Roles, "roles", nil, "roles in order, comma separated")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
