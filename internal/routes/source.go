package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "postpipe-connector/internal/common/errors"
)

// Source yields at most one RouteConfig. Load returns ErrConfigNotFound when
// the source holds nothing, and a ConfigLoadError when it holds something
// that cannot be decoded.
type Source interface {
	Name() string
	Load(ctx context.Context) (*RouteConfig, error)
}

// DefaultFileCandidates are searched, in order, relative to the working directory.
var DefaultFileCandidates = []string{
	filepath.Join("src", "config", "db-routes.json"),
	filepath.Join("config", "db-routes.json"),
	filepath.Join("..", "config", "db-routes.json"),
}

// FileSource reads a JSON or YAML routing file.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	return "file:" + s.Path
}

func (s FileSource) Load(_ context.Context) (*RouteConfig, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, apperrors.ConfigLoadError(s.Path, err)
	}

	cfg, err := Decode(raw, formatForPath(s.Path))
	if err != nil {
		return nil, apperrors.ConfigLoadError(s.Path, err)
	}
	return cfg, nil
}

// FileSources builds the file search list: explicit first when set, then the
// default candidates.
func FileSources(explicit string) []Source {
	sources := make([]Source, 0, len(DefaultFileCandidates)+1)
	if explicit != "" {
		sources = append(sources, FileSource{Path: explicit})
	}
	for _, candidate := range DefaultFileCandidates {
		if candidate == explicit {
			continue
		}
		sources = append(sources, FileSource{Path: candidate})
	}
	return sources
}

// Format is a routing document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func formatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses a routing document. An empty or "null" document is an error.
func Decode(raw []byte, format Format) (*RouteConfig, error) {
	var cfg *RouteConfig
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(raw, &cfg)
	default:
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("routing config is empty")
	}
	return cfg, nil
}
