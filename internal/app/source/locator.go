package source

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Locator maps a collection to a stream source.
type Locator interface {
	// Locate returns the source for the collection, or false when this
	// locator has nothing to offer for it.
	Locate(collection int) (string, bool)

	// Name returns the locator name (used in config).
	Name() string
}

// Metadata provides collection audio metadata.
type Metadata interface {
	AudioMeta(collection int) (url string, durationSec float64, ok bool)
}

// LocalLocatorConfig holds local locator settings.
type LocalLocatorConfig struct {
	PathTemplate string `mapstructure:"path_template" default:"/audio/{collection}.mp3" validate:"required,contains={collection}"`
}

// LocalLocator points the stream at a file bundled with the host.
type LocalLocator struct {
	config *LocalLocatorConfig
}

// NewLocalLocator creates a LocalLocator from raw settings.
func NewLocalLocator(settings map[string]any) (*LocalLocator, error) {
	var config LocalLocatorConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	log.Debug().Msgf("local locator config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &LocalLocator{config: &config}, nil
}

// Locate returns the local path for the collection.
func (l *LocalLocator) Locate(collection int) (string, bool) {
	return strings.ReplaceAll(l.config.PathTemplate, "{collection}", strconv.Itoa(collection)), true
}

// Name returns the locator name.
func (l *LocalLocator) Name() string {
	return "local"
}

// RemoteLocator uses the audio URL from collection metadata.
type RemoteLocator struct {
	meta Metadata
}

// NewRemoteLocator creates a RemoteLocator.
func NewRemoteLocator(meta Metadata) *RemoteLocator {
	return &RemoteLocator{meta: meta}
}

// Locate returns the remote URL, if the collection has one.
func (l *RemoteLocator) Locate(collection int) (string, bool) {
	if l.meta == nil {
		return "", false
	}
	url, _, ok := l.meta.AudioMeta(collection)
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

// Name returns the locator name.
func (l *RemoteLocator) Name() string {
	return "remote"
}
