package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rcarmo/sandsh/pkg/core/config"
	"github.com/rcarmo/sandsh/pkg/shell/interp"
)

const maxFetchBytes = 16 << 20

// httpFetch performs requests for wget, restricted by the network policy.
func httpFetch(cfg *config.Config) interp.FetchFunc {
	client := &http.Client{Timeout: 30 * time.Second}
	return func(ctx context.Context, req interp.FetchRequest) (interp.FetchResponse, error) {
		if !cfg.AllowURL(req.URL) {
			return interp.FetchResponse{}, fmt.Errorf("%s: blocked by network policy", req.URL)
		}
		method := req.Method
		if method == "" {
			method = http.MethodGet
		}
		hreq, err := http.NewRequestWithContext(ctx, method, req.URL, strings.NewReader(req.Body))
		if err != nil {
			return interp.FetchResponse{}, err
		}
		for k, v := range req.Header {
			hreq.Header.Set(k, v)
		}
		resp, err := client.Do(hreq)
		if err != nil {
			return interp.FetchResponse{}, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
		if err != nil {
			return interp.FetchResponse{}, err
		}
		header := make(map[string]string, len(resp.Header))
		for k := range resp.Header {
			header[k] = resp.Header.Get(k)
		}
		return interp.FetchResponse{Status: resp.StatusCode, Header: header, Body: string(body)}, nil
	}
}
