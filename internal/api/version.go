package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Masterminds/semver/v3"
)

// ErrIncompatibleServer is returned when the server version misses the constraint.
var ErrIncompatibleServer = errors.New("incompatible server version")

// ServerVersion reads the backend version from its OpenAPI document, falling back
// to a "version" field on /health.
func (c *Client) ServerVersion(ctx context.Context) (*semver.Version, error) {
	var doc struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
		Version string `json:"version"`
	}

	raw := ""
	if err := c.do(ctx, http.MethodGet, "/openapi.json", "/openapi.json", nil, nil, &doc); err == nil {
		raw = doc.Info.Version
	}
	if raw == "" {
		if err := c.do(ctx, http.MethodGet, "/health", "/health", nil, nil, &doc); err != nil {
			return nil, fmt.Errorf("reading server version: %w", err)
		}
		raw = doc.Version
	}
	if raw == "" {
		return nil, errors.New("server does not report a version")
	}

	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("server version %q is not valid semver: %w", raw, err)
	}
	return v, nil
}

// CheckVersion verifies the server version satisfies constraint, e.g. ">= 1.0, < 2".
func (c *Client) CheckVersion(ctx context.Context, constraint string) (*semver.Version, error) {
	cons, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	v, err := c.ServerVersion(ctx)
	if err != nil {
		return nil, err
	}
	if !cons.Check(v) {
		return v, fmt.Errorf("%w: server %s does not satisfy %s", ErrIncompatibleServer, v, constraint)
	}
	return v, nil
}
