package source

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/versesync/internal/infra/config"
)

// NewResolverFromConfig creates a resolver with the locators listed in the audio configuration.
func NewResolverFromConfig(cfg config.AudioConfig, stream Loader, meta Metadata) (*Resolver, error) {
	sources := cfg.Sources
	if len(sources) == 0 {
		sources = config.DefaultSources()
	}

	var locators []Locator
	for i, scfg := range sources {
		var locator Locator
		log.Debug().Msgf("creating source locator: index=%d type=%s settings=%+v", i+1, scfg.Type, scfg.Settings)
		switch scfg.Type {
		case "local":
			local, err := NewLocalLocator(scfg.Settings)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to create locator (index %d, type %s)", i, scfg.Type)
			}
			locator = local

		case "remote":
			locator = NewRemoteLocator(meta)

		default:
			return nil, errors.Newf("unsupported locator type: %s (locator index %d)", scfg.Type, i)
		}

		locators = append(locators, locator)
		log.Info().Msgf("registered source locator: index=%d type=%s", i+1, scfg.Type)
	}

	return NewResolver(stream, meta, locators, cfg.ResolveTimeout()), nil
}
