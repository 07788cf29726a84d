package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/facekit/internal/action"
	"github.com/dshills/facekit/internal/actions"
)

func newActionsCmd(root *rootOptions) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List registered actions and their event masks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(root, cmd.ErrOrStderr(), actions.Collaborators{})
			if err != nil {
				return err
			}
			defer func() {
				s.close()
				_ = s.eng.Shutdown(cmd.Context())
			}()

			list := s.eng.Dispatcher().Actions()
			if namespace != "" {
				list = s.eng.Dispatcher().InNamespace(namespace)
			}

			rows := make([][]string, 0, len(list))
			for _, a := range list {
				rows = append(rows, []string{
					a.Name(),
					a.DisplayName(),
					mode(a),
					a.RefreshOn().Name(),
					a.PurgeOn().Name(),
					a.TriggerOn().Name(),
				})
			}

			p := newPrinter(cmd.OutOrStdout())
			p.Table([]string{"NAME", "DISPLAY", "MODE", "REFRESH", "PURGE", "TRIGGER"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Only list actions in this namespace (e.g. edit)")
	return cmd
}

func mode(a *action.Action) string {
	var m []string
	if a.IsAsync() {
		m = append(m, "async")
	} else {
		m = append(m, "sync")
	}
	if a.IsReentrant() {
		m = append(m, "reentrant")
	}
	return strings.Join(m, ",")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
