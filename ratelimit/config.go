package ratelimit

import "github.com/fiberpay/ckb-custody-go/common"

// NativeAssetKey identifies the native asset in limit records; token classes
// are keyed by their type script hash.
const NativeAssetKey = "CKB"

const (
	// DefaultNativeHourlyCeiling caps native transfers at 3000 CKB per hour.
	DefaultNativeHourlyCeiling = 3000 * common.ShannonsPerCKB

	// DefaultTokenHourlyCeiling applies to token classes without an explicit
	// ceiling, in the token's smallest unit.
	DefaultTokenHourlyCeiling = 10_000_000_000

	// DefaultNativeDestinationCeiling allows a single native transfer per
	// destination address.
	DefaultNativeDestinationCeiling = 1
)

type Config struct {
	// HourlyCeilings maps asset key -> max cumulative amount per calendar
	// hour, in the asset's smallest unit.
	HourlyCeilings map[string]uint64

	// DefaultHourlyCeiling applies to asset keys absent from HourlyCeilings.
	DefaultHourlyCeiling uint64

	// DestinationCeilings maps asset key -> max transfer count per
	// destination. Asset keys absent from the map are unbounded.
	DestinationCeilings map[string]int64
}

func DefaultConfig() *Config {
	return &Config{
		HourlyCeilings: map[string]uint64{
			NativeAssetKey: DefaultNativeHourlyCeiling,
		},
		DefaultHourlyCeiling: DefaultTokenHourlyCeiling,
		DestinationCeilings: map[string]int64{
			NativeAssetKey: DefaultNativeDestinationCeiling,
		},
	}
}

func (c *Config) hourlyCeiling(assetKey string) uint64 {
	if ceiling, ok := c.HourlyCeilings[assetKey]; ok {
		return ceiling
	}
	return c.DefaultHourlyCeiling
}

// destinationCeiling returns (ceiling, bounded). Unbounded asset keys are not
// destination-checked at all.
func (c *Config) destinationCeiling(assetKey string) (int64, bool) {
	ceiling, ok := c.DestinationCeilings[assetKey]
	return ceiling, ok
}
