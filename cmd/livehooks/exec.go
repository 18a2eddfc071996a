package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/features/jsexec"
)

// execTokenEnv names the environment variable read when --token is not given.
const execTokenEnv = "LIVEHOOKS_EXEC_TOKEN"

func execCmd() *cobra.Command {
	var server, token string

	cmd := &cobra.Command{
		Use:   "exec METHOD SELECTOR",
		Short: "Ask connected clients to invoke an element method",
		Long: `Broadcast a phx:js-exec request through a running server.

Clients only honour focus, blur, click, reset and submit. Other methods
are refused here unless --force is given, in which case clients log a
warning and ignore them.

The server only accepts requests carrying its exec token, printed by
'livehooks serve' or set as server.execToken in livehooks.yaml. Pass it
with --token or $` + execTokenEnv + `.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, selector := args[0], args[1]
			force, _ := cmd.Flags().GetBool("force")
			if _, ok := jsexec.ParseAction(method); !ok && !force {
				return errors.New("E080").WithDetail(fmt.Sprintf("method %q is not in the allow-list", method))
			}
			if token == "" {
				token = os.Getenv(execTokenEnv)
			}
			if token == "" {
				return errors.New("E082").WithDetail("no exec token; pass --token or set " + execTokenEnv)
			}

			body, _ := json.Marshal(map[string]string{"attr": method, "to": selector})
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				strings.TrimRight(server, "/")+"/api/exec", bytes.NewReader(body))
			if err != nil {
				return errors.New("E060").Wrap(err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return errors.New("E060").Wrap(err)
			}
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusOK:
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusUnsupportedMediaType:
				return errors.New("E082").WithDetail("server answered " + resp.Status)
			default:
				return errors.New("E081").WithDetail("server answered " + resp.Status)
			}
			var out struct {
				Sessions int `json:"sessions"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return errors.New("E063").Wrap(err)
			}
			success("%s(%s) sent to %d session(s)", method, selector, out.Sessions)
			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "http://localhost:4000", "Server base URL")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Exec token (default $"+execTokenEnv+")")
	cmd.Flags().Bool("force", false, "Send methods outside the allow-list")
	return cmd
}
