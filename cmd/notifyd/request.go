package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ibrahzuma/umoja-hardware-system/internal/api"
)

type requestOptions struct {
	data string
}

func newRequestCmd(root *rootOptions) *cobra.Command {
	o := &requestOptions{}

	cmd := &cobra.Command{
		Use:   "request METHOD ENDPOINT",
		Short: "Issue one REST API call",
		Long: `Issue one call to the shop REST API and print the JSON response.

ENDPOINT is relative to the API base path, e.g. /products/ or /api/products/.
On failure the server's error message is printed and the exit code is non-zero.`,
		Example: `  notifyd request GET /products/
  notifyd request POST /sales/ --data '{"branch":1,"items":[]}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, root, o, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&o.data, "data", "d", "", "JSON request body")

	return cmd
}

func runRequest(cmd *cobra.Command, root *rootOptions, o *requestOptions, method, endpoint string) error {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported method %q", method)
	}

	var body any
	if o.data != "" {
		if !json.Valid([]byte(o.data)) {
			return errors.New("--data is not valid JSON")
		}
		body = json.RawMessage(o.data)
	}

	cfg, logger, err := root.load(cmd)
	if err != nil {
		return err
	}

	sess, err := newSession(cfg)
	if err != nil {
		return err
	}

	client := api.NewClient(sess.endpoint.Origin(), sess.tokens,
		api.WithHTTPClient(&http.Client{Jar: sess.jar}),
		api.WithBasePath(cfg.API.BasePath),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	)

	raw, err := client.Request(cmd.Context(), method, endpoint, body)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d %s\n%s\n", apiErr.StatusCode, apiErr.Status, apiErr.Message)
		}
		return err
	}

	if raw == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "(no content)")
		return nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(cmd.OutOrStdout())
	return err
}
