// Package tokencli manages ics-tokens from a terminal, driving the same
// token manager the links page uses.
package tokencli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pershin-daniil/icscal/internal/tokens"
	"github.com/pershin-daniil/icscal/pkg/models"
)

const (
	sessionEnv    = "ICSTOKEN_SESSION"
	sessionCookie = "session"
)

type options struct {
	server  string
	session string
	timeout time.Duration
}

// bearerClient attaches the session to every request.
type bearerClient struct {
	client  *http.Client
	session string
}

func (c *bearerClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.session)
	return c.client.Do(req)
}

// printedPage stands in for the browser page: a reload just reports that the
// token list changed.
type printedPage struct {
	out io.Writer
}

func (p *printedPage) Reload() {
	fmt.Fprintln(p.out, "token deleted")
}

// NewRootCmd builds the icstoken command tree writing to out.
func NewRootCmd(log *logrus.Logger, out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "icstoken",
		Short:        "Manages calendar feed tokens of an icscal server",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8080", "icscal server base URL")
	root.PersistentFlags().StringVar(&opts.session, "session", os.Getenv(sessionEnv), "session token (defaults to $"+sessionEnv+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newCreateCmd(log, opts))
	root.AddCommand(newDeleteCmd(log, opts))
	return root
}

func newLoginCmd(opts *options) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Logs in and prints a session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := json.Marshal(models.LoginPayload{Username: username, Password: password})
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				strings.TrimSuffix(opts.server, "/")+"/api/auth/login", bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := (&http.Client{Timeout: opts.timeout}).Do(req)
			if err != nil {
				return fmt.Errorf("err logging in: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("login rejected with status %d", resp.StatusCode)
			}
			for _, cookie := range resp.Cookies() {
				if cookie.Name == sessionCookie {
					fmt.Fprintln(cmd.OutOrStdout(), cookie.Value)
					return nil
				}
			}
			return fmt.Errorf("no session in login response")
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "CYU username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "CYU password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newCreateCmd(log *logrus.Logger, opts *options) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Creates a calendar feed token for the given credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			alert := tokens.NewAlert()
			manager, err := newManager(log, opts, out, alert)
			if err != nil {
				return err
			}
			form := tokens.NewForm()
			manager.Bind(nil, form)
			if _, err = form.Submit(cmd.Context(),
				tokens.Field{Name: "username", Value: username},
				tokens.Field{Name: "password", Value: password},
			); err != nil {
				return err
			}
			fmt.Fprintf(out, "[%s] %s\n", alert.Mode(), alert.Text())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "CYU username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "CYU password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newDeleteCmd(log *logrus.Logger, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TOKEN_ID...",
		Short: "Revokes calendar feed tokens",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManager(log, opts, cmd.OutOrStdout(), tokens.NewAlert())
			if err != nil {
				return err
			}
			buttons := make([]*tokens.Button, 0, len(args))
			bound := make([]tokens.DeleteButton, 0, len(args))
			for _, id := range args {
				button := tokens.NewButton(id)
				buttons = append(buttons, button)
				bound = append(bound, button)
			}
			manager.Bind(bound, nil)
			for _, button := range buttons {
				if err = button.Click(cmd.Context()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newManager(log *logrus.Logger, opts *options, out io.Writer, alert *tokens.Alert) (*tokens.Manager, error) {
	if opts.session == "" {
		return nil, fmt.Errorf("no session: run login and pass --session or set $%s", sessionEnv)
	}
	client := &bearerClient{client: &http.Client{Timeout: opts.timeout}, session: opts.session}
	return tokens.New(log, client, opts.server, &printedPage{out: out}, alert), nil
}
