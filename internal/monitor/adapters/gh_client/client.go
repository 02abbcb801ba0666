// Package ghclient builds authenticated GitHub API clients.
package ghclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v68/github"
)

// Options selects how the client authenticates. Token takes precedence
// over GitHub App credentials.
type Options struct {
	Token string

	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	PrivateKey     []byte // used when PrivateKeyPath is empty

	// BaseURL points at a GitHub Enterprise Server API, e.g.
	// https://ghe.example.com/api/v3/. Empty means github.com.
	BaseURL string

	// Transport is the underlying round tripper, http.DefaultTransport if nil.
	Transport http.RoundTripper
}

// UsesApp reports whether the options carry App installation credentials.
func (o Options) UsesApp() bool {
	return o.AppID != 0 && o.InstallationID != 0 && (o.PrivateKeyPath != "" || len(o.PrivateKey) > 0)
}

// New creates a GitHub client authenticated with a personal access token or
// as a GitHub App installation.
func New(opts Options) (*github.Client, error) {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	var client *github.Client
	switch {
	case opts.Token != "":
		client = github.NewClient(&http.Client{Transport: transport}).WithAuthToken(opts.Token)
	case opts.UsesApp():
		itr, err := installationTransport(transport, opts)
		if err != nil {
			return nil, err
		}
		client = github.NewClient(&http.Client{Transport: itr})
	default:
		return nil, errors.New("github credentials required: set a token or App ID, installation ID and private key")
	}

	if opts.BaseURL == "" {
		return client, nil
	}

	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	client, err := client.WithEnterpriseURLs(base, base)
	if err != nil {
		return nil, fmt.Errorf("configuring enterprise URL: %w", err)
	}
	return client, nil
}

func installationTransport(tr http.RoundTripper, opts Options) (*ghinstallation.Transport, error) {
	var (
		itr *ghinstallation.Transport
		err error
	)
	if opts.PrivateKeyPath != "" {
		itr, err = ghinstallation.NewKeyFromFile(tr, opts.AppID, opts.InstallationID, opts.PrivateKeyPath)
	} else {
		itr, err = ghinstallation.New(tr, opts.AppID, opts.InstallationID, opts.PrivateKey)
	}
	if err != nil {
		return nil, fmt.Errorf("creating installation transport: %w", err)
	}

	if opts.BaseURL != "" {
		itr.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	return itr, nil
}
