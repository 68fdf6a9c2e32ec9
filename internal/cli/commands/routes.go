package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell-dev/inkwell/internal/api"
	"github.com/inkwell-dev/inkwell/internal/web/websocket"
)

func newRoutesCommand(e *env) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the HTTP routes",
		Long:  "List every route the API serves. No database connection is needed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := e.load()
			if err != nil {
				return err
			}

			// handlers are never invoked, so the services need no pool
			r := api.New(api.Deps{
				Config:   api.Config{Prefix: cfg.Server.APIPrefix},
				Services: api.NewServices(nil, nil, api.Security{}, nil, nil),
				Hub:      websocket.NewHub(nil),
			})
			routes, err := r.Describe()
			if err != nil {
				return err
			}

			p := e.printer(cmd)
			t := p.Table("Method", "Pattern", "Parameters")
			for _, rt := range routes {
				if method != "" && !strings.EqualFold(rt.Method, method) {
					continue
				}
				t.AddRow(rt.Method, rt.Pattern, strings.Join(rt.Parameters, ", "))
			}
			t.Render()
			fmt.Fprintf(p.Writer(), "\n%d routes\n", t.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "Only show routes for this HTTP method")

	return cmd
}
