package config

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every tuning environment variable,
// e.g. NEXUS_MARKETPLACE_CHANNELS.
const EnvPrefix = "NEXUS"

// Tuning holds the environment-style knobs. It is built once per run and
// passed to the components that need it; nothing reads the environment
// after LoadTuning returns.
type Tuning struct {
	// MarketplaceChannels are upper-cased channel identifiers treated as
	// marketplace sales.
	MarketplaceChannels map[string]struct{}

	// RollingWindow is the default rolling lookback length in months.
	RollingWindow int

	// MaxOneShotBytes is the largest CSV read in a single pass; bigger
	// files are streamed.
	MaxOneShotBytes int64

	// CSVChunkSize is the number of rows per batch when streaming.
	CSVChunkSize int
}

// SetDefaults registers the tuning defaults on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("marketplace_channels", "AMAZON-FBA,ETSY,EBAY")
	v.SetDefault("rolling_window", DefaultRollingWindow)
	v.SetDefault("max_oneshot_bytes", 100*1024*1024)
	v.SetDefault("csv_chunksize", 100_000)
}

// NewViper returns a viper instance bound to the NEXUS_* environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// LoadTuning reads the tuning knobs from v.
func LoadTuning(v *viper.Viper) (Tuning, error) {
	t := Tuning{
		MarketplaceChannels: ParseChannels(v.GetString("marketplace_channels")),
		RollingWindow:       v.GetInt("rolling_window"),
		MaxOneShotBytes:     v.GetInt64("max_oneshot_bytes"),
		CSVChunkSize:        v.GetInt("csv_chunksize"),
	}

	if t.RollingWindow < 1 {
		return Tuning{}, errors.NewInvalidConfigError("rolling_window must be at least 1, got %d", t.RollingWindow)
	}
	if t.MaxOneShotBytes < 0 {
		return Tuning{}, errors.NewInvalidConfigError("max_oneshot_bytes must not be negative, got %d", t.MaxOneShotBytes)
	}
	if t.CSVChunkSize < 1 {
		return Tuning{}, errors.NewInvalidConfigError("csv_chunksize must be at least 1, got %d", t.CSVChunkSize)
	}
	return t, nil
}

// DefaultTuning returns the tuning defaults without consulting the
// environment.
func DefaultTuning() Tuning {
	v := viper.New()
	SetDefaults(v)
	t, _ := LoadTuning(v)
	return t
}

// ParseChannels splits a comma-separated channel list into an upper-cased set.
func ParseChannels(list string) map[string]struct{} {
	channels := make(map[string]struct{})
	for _, ch := range strings.Split(list, ",") {
		ch = strings.ToUpper(strings.TrimSpace(ch))
		if ch != "" {
			channels[ch] = struct{}{}
		}
	}
	return channels
}

// IsMarketplace reports whether a channel is a marketplace channel.
// Matching is case-insensitive and ignores surrounding whitespace.
func (t Tuning) IsMarketplace(channel string) bool {
	_, ok := t.MarketplaceChannels[strings.ToUpper(strings.TrimSpace(channel))]
	return ok
}

// ChannelList returns the marketplace channels in sorted order.
func (t Tuning) ChannelList() []string {
	list := make([]string, 0, len(t.MarketplaceChannels))
	for ch := range t.MarketplaceChannels {
		list = append(list, ch)
	}
	sort.Strings(list)
	return list
}
