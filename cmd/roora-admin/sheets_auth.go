package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	gsheet "roora/internal/sheets/google"
)

func newSheetsAuthCmd() *cobra.Command {
	var clientFile, out string
	var port int
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize budget exports with a Google account and save the OAuth token",
		Long: `Runs the OAuth consent flow for the spreadsheets scope. Add
http://localhost:<port>/callback to the OAuth client's redirect URIs, then point
GOOGLE_OAUTH_CLIENT_FILE and GOOGLE_OAUTH_TOKEN_FILE at the client and the saved token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			if clientFile == "" {
				clientFile = e.cfg.GoogleOAuthClientFile
			}
			if clientFile == "" {
				return errors.New("set --client or GOOGLE_OAUTH_CLIENT_FILE")
			}
			if out == "" {
				out = e.cfg.GoogleOAuthTokenFile
			}
			if out == "" {
				out = "token.json"
			}

			b, err := os.ReadFile(clientFile)
			if err != nil {
				return fmt.Errorf("read client file: %w", err)
			}
			conf, err := gsheet.OAuthConfig(b)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", "localhost:"+strconv.Itoa(port))
			if err != nil {
				return fmt.Errorf("listen for callback: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			tok, err := authorize(ctx, conf, ln, uuid.NewString(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := gsheet.SaveToken(out, tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientFile, "client", "", "OAuth client secret JSON (default GOOGLE_OAUTH_CLIENT_FILE)")
	cmd.Flags().StringVar(&out, "out", "", "token output path (default GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	cmd.Flags().IntVar(&port, "port", 8085, "local port for the redirect callback")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for consent")
	return cmd
}

type callbackResult struct {
	code string
	err  error
}

// authorize serves the redirect callback on ln, prints the consent URL and
// exchanges the returned code. It takes ownership of ln.
func authorize(ctx context.Context, conf *oauth2.Config, ln net.Listener, state string, w io.Writer) (*oauth2.Token, error) {
	port := ln.Addr().(*net.TCPAddr).Port
	conf.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(rw http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("authorization state mismatch")
		case q.Get("code") == "":
			res.err = errors.New("authorization code missing")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(rw, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(rw, "You may close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(w, "Open this URL to authorize:\n%s\n", conf.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := conf.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}
