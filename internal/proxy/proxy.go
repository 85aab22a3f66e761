// Package proxy forwards prediction requests to a local model server during
// development, so the page can call /predict on its own origin.
package proxy

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
)

// PathPrefix is the path forwarded to the target.
const PathPrefix = "/predict"

// New returns a reverse proxy to target. The outgoing Host header is set to
// the target's host and TLS certificates are not verified.
func New(target string, logger *zap.Logger) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse proxy target %q: %w", target, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy target %q must be an absolute URL", target)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // dev only

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.Out.Host = u.Host
			pr.SetXForwarded()
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("proxy request failed",
				zap.String("path", r.URL.Path),
				zap.String("target", u.String()),
				zap.Error(err))
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	logger.Info("development proxy enabled", zap.String("prefix", PathPrefix), zap.String("target", u.String()))
	return rp, nil
}

// Register mounts the proxy on mux for PathPrefix and everything below it.
func Register(mux *http.ServeMux, h http.Handler) {
	mux.Handle(PathPrefix, h)
	mux.Handle(PathPrefix+"/", h)
}
