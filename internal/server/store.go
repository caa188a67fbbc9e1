package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parserlab/ocrdiff/internal/config"
	"github.com/parserlab/ocrdiff/internal/home"
	"github.com/parserlab/ocrdiff/internal/parsers"
)

// NewParserStore builds the parser store selected by store.backend. With
// store.mirror set, remote documents are also kept in the home directory.
func NewParserStore(ctx context.Context, c *config.Config, h *home.Dir, logger *slog.Logger) (parsers.Store, error) {
	local := parsers.NewFileStore(h.ParsersPath())

	var remote parsers.Store
	switch c.Store.Backend {
	case config.BackendFile, "":
		return local, nil
	case config.BackendGitHub:
		gh := c.Store.GitHub
		remote = parsers.NewGitHubStore(parsers.GitHubConfig{
			APIURL: gh.APIURL,
			Owner:  gh.Owner,
			Repo:   gh.Repo,
			Path:   gh.Path,
			Branch: gh.Branch,
			Token:  c.GitHubToken(),
		})
	case config.BackendDrive:
		d, err := parsers.NewDriveStore(ctx, parsers.DriveConfig{
			FileID:          c.Store.Drive.FileID,
			CredentialsFile: c.Store.Drive.CredentialsFile,
			APIKey:          c.DriveAPIKey(),
		})
		if err != nil {
			return nil, err
		}
		remote = d
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Store.Mirror {
		return parsers.NewMirrorStore(local, remote, logger), nil
	}
	return remote, nil
}
