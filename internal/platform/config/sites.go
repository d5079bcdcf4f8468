package config

import (
	"bytes"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
	"contractscout/internal/platform/validate"

	"gopkg.in/yaml.v3"
)

// Site defaults
const (
	DefaultPollInterval  = 30 * time.Second
	DefaultResultCeiling = 7
	DefaultArtifactType  = "repositories"
	DefaultLanguage      = "Solidity"
	DefaultWindow        = 15
	DefaultJitter        = 0.1
)

// DefaultStrategies is the order used when a site lists none
var DefaultStrategies = []string{"address", "name"}

// KnownSites are the explorers whose listing layout is known to extract cleanly
var KnownSites = []string{
	"etherscan.io",
	"goerli.etherscan.io",
	"sepolia.etherscan.io",
	"kovan.etherscan.io",
	"rinkeby.etherscan.io",
	"ropsten.etherscan.io",
	"ftmscan.com",
	"testnet.ftmscan.com",
}

// Site is one entry of the sites file
type Site struct {
	Site            string        `yaml:"site" validate:"required,site_host"`
	BaseURL         string        `yaml:"base_url" validate:"required,url"`
	PollInterval    time.Duration `yaml:"poll_interval" validate:"min=1s"`
	ResultCeiling   int           `yaml:"result_ceiling" validate:"min=1,max=100"`
	MinEngagement   int           `yaml:"min_engagement" validate:"min=0"`
	RequiredKeyword string        `yaml:"required_keyword" validate:"omitempty,max=128"`
	ArtifactType    string        `yaml:"artifact_type" validate:"oneof=repositories code commits issues discussions registrypackages marketplace topics wikis users"`
	Language        string        `yaml:"language" validate:"max=64"`
	Strategies      []string      `yaml:"strategies" validate:"min=1,dive,oneof=address name name_keyword"`
	Window          int           `yaml:"window" validate:"min=1,max=100"`
	Baseline        bool          `yaml:"baseline"`
	Jitter          float64       `yaml:"jitter" validate:"min=0,max=1"`
}

// SitesFile is the document layout of the sites file
type SitesFile struct {
	Sites []Site `yaml:"sites" validate:"min=1,dive"`
}

// LoadSites reads, defaults and validates the sites file at path.
// Every failure carries ErrorCodeConfig.
func LoadSites(path string) ([]Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "open sites file %s", path)
	}
	defer func() { _ = f.Close() }()
	sites, err := ParseSites(f)
	if err != nil {
		return nil, perr.WithOp(err, path)
	}
	return sites, nil
}

// ParseSites decodes a sites document from r. Unknown keys are rejected so typos surface at startup.
func ParseSites(r io.Reader) ([]Site, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "read sites file")
	}
	var doc SitesFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, perr.Configf("sites file is empty")
		}
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "decode sites file")
	}

	seen := make(map[string]struct{}, len(doc.Sites))
	for i := range doc.Sites {
		s := &doc.Sites[i]
		s.applyDefaults()
		if _, dup := seen[s.Site]; dup {
			return nil, perr.WithField(perr.Configf("site %q listed twice", s.Site), "sites.site")
		}
		seen[s.Site] = struct{}{}
	}

	if err := validate.Struct(doc); err != nil {
		return nil, perr.WithField(perr.Wrap(err, perr.ErrorCodeConfig, "invalid sites file"), fieldOf(err))
	}

	for _, s := range doc.Sites {
		if slices.Contains(s.Strategies, "name_keyword") && s.RequiredKeyword == "" {
			return nil, perr.WithField(
				perr.Configf("site %q uses name_keyword without required_keyword", s.Site), "required_keyword")
		}
		if !slices.Contains(KnownSites, s.Site) {
			logger.Named("config").Warn().Str("site", s.Site).Msg("site is not a known explorer; extraction may fail")
		}
	}
	return doc.Sites, nil
}

func (s *Site) applyDefaults() {
	s.Site = strings.ToLower(strings.TrimSpace(s.Site))
	if s.BaseURL == "" && s.Site != "" {
		s.BaseURL = "https://" + s.Site
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.PollInterval == 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.ResultCeiling == 0 {
		s.ResultCeiling = DefaultResultCeiling
	}
	if s.ArtifactType == "" {
		s.ArtifactType = DefaultArtifactType
	}
	s.ArtifactType = strings.ToLower(s.ArtifactType)
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	if len(s.Strategies) == 0 {
		s.Strategies = slices.Clone(DefaultStrategies)
	}
	if s.Window == 0 {
		s.Window = DefaultWindow
	}
	if s.Jitter == 0 {
		s.Jitter = DefaultJitter
	}
}

func fieldOf(err error) string {
	if e, ok := perr.As(err); ok {
		return e.Field()
	}
	return ""
}
