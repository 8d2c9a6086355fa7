package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/serialkit/internal/cli/config"
	"github.com/conduit-lang/serialkit/internal/cli/ui"
	"github.com/conduit-lang/serialkit/pkg/serial"
	"github.com/conduit-lang/serialkit/pkg/store"
	"github.com/conduit-lang/serialkit/pkg/store/redisstore"
	"github.com/conduit-lang/serialkit/pkg/store/sqlstore"
)

// nodeStore is the part of a backend the store commands use
type nodeStore interface {
	store.Backend
	io.Closer
	Keys(ctx context.Context, entity string) ([]string, error)
}

// ErrNoStore is returned when the configuration names no store
var ErrNoStore = errors.New("no store configured: set store.driver or store.redis_addr")

// openStore opens the backend named by the configuration. SQL stores are
// migrated on open.
func openStore(ctx context.Context, cfg *config.Config, opts *globalOptions) (nodeStore, error) {
	switch {
	case cfg.Store.RedisAddr != "":
		rc := redisstore.DefaultConfig()
		rc.Addr = cfg.Store.RedisAddr
		rc.Prefix = cfg.Store.RedisPrefix
		s, err := redisstore.New(rc)
		if err != nil {
			return nil, err
		}
		return s, nil
	case cfg.Store.Driver != "":
		s, err := sqlstore.Open(cfg.Store.Driver, cfg.Store.DSN,
			sqlstore.WithTable(cfg.Store.Table), sqlstore.WithLogger(opts.logger()))
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, ErrNoStore
	}
}

// NewStoreCommand creates the store command group
func NewStoreCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Read and write stored graph nodes",
		Long: `Read and write node bodies in the store named by serialkit.yaml
(store.driver and store.dsn for SQL, store.redis_addr for Redis).`,
	}

	cmd.AddCommand(newStorePutCommand(opts))
	cmd.AddCommand(newStoreGetCommand(opts))
	cmd.AddCommand(newStoreKeysCommand(opts))
	return cmd
}

// withStore loads the configuration, opens the store and runs fn
func (o *globalOptions) withStore(cmd *cobra.Command, fn func(ctx context.Context, s nodeStore) error) error {
	cfg, err := o.load(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStore(ctx, cfg, o)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func newStorePutCommand(opts *globalOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "put <entity> [file]",
		Short: "Store a JSON object as a node body",
		Long: `Store a JSON object under the entity name. The key is taken from
--key, or else from the object's "id" member.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := args[0]
			v, source, err := opts.readDocument(cmd, args[1:])
			if err != nil {
				return err
			}
			obj, ok := v.AsObject()
			if !ok {
				return fmt.Errorf("%s is not a JSON object", source)
			}
			if key == "" {
				key = identityOf(obj)
			}
			if key == "" {
				return fmt.Errorf("no key: pass --key or give the object an \"id\"")
			}

			body, err := gojson.Marshal(v)
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(ctx context.Context, s nodeStore) error {
				if err := s.Save(ctx, []store.Record{{Entity: entity, Key: key, Body: body}}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Stored %s %s", entity, key), opts.noColor))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Node key")
	return cmd
}

func newStoreGetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <entity> <key>",
		Short: "Print a stored node body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, s nodeStore) error {
				body, err := s.Load(ctx, args[0], args[1])
				if err != nil {
					if store.IsNotFound(err) {
						return fmt.Errorf("%s %s not found", args[0], args[1])
					}
					return err
				}
				v, err := serial.Parse(body)
				if err != nil {
					return err
				}
				out, err := gojson.MarshalIndent(v, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			})
		},
	}
}

func newStoreKeysCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys <entity>",
		Short: "List the stored keys of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, s nodeStore) error {
				keys, err := s.Keys(ctx, args[0])
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}
}

// identityOf returns the "id" member of obj as a string
func identityOf(obj *serial.Object) string {
	raw, ok := obj.Get("id")
	if !ok {
		return ""
	}
	if s, ok := raw.AsString(); ok {
		return s
	}
	if lit, ok := raw.Literal(); ok {
		return lit
	}
	return ""
}
