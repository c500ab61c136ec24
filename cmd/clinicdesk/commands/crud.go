package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openclinic/clinicdesk/pkg/stores"
)

// recordCommands describes the list/get/create/update/delete subcommands of
// one table. The operation fields take method expressions on stores.Store.
type recordCommands[T, L, In any] struct {
	use   string
	short string

	bindFlags func(cmd *cobra.Command)
	input     func(cmd *cobra.Command) In

	list   func(stores.Store, context.Context) ([]L, error)
	get    func(stores.Store, context.Context, int64) (T, error)
	create func(stores.Store, context.Context, In) (T, error)
	update func(stores.Store, context.Context, int64, In) (T, error)
	remove func(stores.Store, context.Context, int64) (T, error)
}

func (rc recordCommands[T, L, In]) command(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   rc.use,
		Short: rc.short,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List all %s", rc.use),
		Args:  cobra.NoArgs,
		RunE: withSession(version, func(cmd *cobra.Command, _ []string, s *session) (any, error) {
			return rc.list(s.store, s.ctx)
		}),
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(version, func(cmd *cobra.Command, args []string, s *session) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			return rc.get(s.store, s.ctx, id)
		}),
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record; omitted fields are stored as NULL",
		Args:  cobra.NoArgs,
		RunE: withSession(version, func(cmd *cobra.Command, _ []string, s *session) (any, error) {
			return rc.create(s.store, s.ctx, rc.input(cmd))
		}),
	}
	rc.bindFlags(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Overwrite a record; omitted fields are stored as NULL",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(version, func(cmd *cobra.Command, args []string, s *session) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			return rc.update(s.store, s.ctx, id, rc.input(cmd))
		}),
	}
	rc.bindFlags(updateCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record and print what was removed",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(version, func(cmd *cobra.Command, args []string, s *session) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			return rc.remove(s.store, s.ctx, id)
		}),
	}

	cmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd)
	return cmd
}
