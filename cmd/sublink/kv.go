package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/provolone8305/sublink-worker/internal/store"
)

func newKVCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Inspect and edit stored entries (nodes, auth, overrides, configs)",
	}

	var ttl time.Duration
	set := &cobra.Command{
		Use:   "set NAMESPACE KEY VALUE",
		Short: "Write an entry; VALUE may be @FILE or - for stdin",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := parseNS(args[0])
			if err != nil {
				return err
			}
			value := args[2]
			if value == "-" || strings.HasPrefix(value, "@") {
				if value, err = readInput(cmd.InOrStdin(), strings.TrimPrefix(value, "@")); err != nil {
					return err
				}
			}
			return a.withStore(func(st *store.Store) error {
				return st.Put(cmd.Context(), ns, args[1], value, ttl)
			})
		},
	}
	set.Flags().DurationVar(&ttl, "ttl", 0, "过期时间（0 表示永不过期）")

	get := &cobra.Command{
		Use:   "get NAMESPACE KEY",
		Short: "Print an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := parseNS(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store) error {
				v, ok, err := st.Get(cmd.Context(), ns, args[1])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s/%s: not found", ns, args[1])
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
				return err
			})
		},
	}

	del := &cobra.Command{
		Use:   "del NAMESPACE KEY",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := parseNS(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store) error {
				return st.Delete(cmd.Context(), ns, args[1])
			})
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Remove expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				n, err := st.Purge(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "purged %d\n", n)
				return err
			})
		},
	}

	cmd.AddCommand(set, get, del, purge)
	return cmd
}

func parseNS(s string) (store.Namespace, error) {
	ns, ok := store.ParseNamespace(s)
	if !ok {
		return "", fmt.Errorf("unknown namespace %q (want nodes, auth, overrides or configs)", s)
	}
	return ns, nil
}

func (a *app) withStore(fn func(*store.Store) error) error {
	st, err := store.Open(a.cfg.Database.Path, a.log)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
