package membership

import (
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
)

// Config is the configuration surface enumerated in spec §6. It is
// loaded the way serf's agent loads its own Config: a plain struct
// with defaults, optionally overlaid via FromMap using mapstructure
// (command/agent/config.go follows the same pattern for the agent's
// own JSON config fragments).
type Config struct {
	// AllowWeaklyUpMembers is the delay after which a Joining node is
	// promoted to WeaklyUp during a partition. Nil disables WeaklyUp
	// ("off" in the raw config surface).
	AllowWeaklyUpMembers *time.Duration `config:"allow-weakly-up-members"`

	// DowningProviderClass selects the downing policy collaborator by
	// name from the downing package's registry.
	DowningProviderClass string `config:"downing-provider-class"`

	// AutoDownUnreachableAfter is the policy input for the built-in
	// auto-down-unreachable-after downing policy.
	AutoDownUnreachableAfter time.Duration `config:"auto-down-unreachable-after"`

	// Roles are the initial roles of the local member; must include
	// exactly one datacenter role (enforced by NewJoining).
	Roles []string `config:"roles"`

	// AppVersion is advertised to peers.
	AppVersion string `config:"app-version"`

	// WeaklyUpBatchLimit bounds Joining->WeaklyUp promotions per leader
	// tick. Spec §9 leaves the default unspecified; 1 is the
	// conservative choice it suggests.
	WeaklyUpBatchLimit int `config:"weakly-up-batch-limit"`

	// TombstoneTTL is how long tombstones are retained before pruning.
	TombstoneTTL time.Duration `config:"tombstone-ttl"`

	// CoalescePeriod/QuiescentPeriod bound how long rapid reachability
	// flaps are coalesced before being flushed to subscribers (§5).
	CoalescePeriod  time.Duration `config:"coalesce-period"`
	QuiescentPeriod time.Duration `config:"quiescent-period"`
}

// DefaultConfig returns sane defaults, mirroring serf's DefaultConfig +
// Init() pattern (serf_test.go's testConfig starts from DefaultConfig()
// and overrides fields for the test at hand).
func DefaultConfig() *Config {
	weaklyUp := 7 * time.Second
	return &Config{
		AllowWeaklyUpMembers:     &weaklyUp,
		DowningProviderClass:     "auto-down-unreachable-after",
		AutoDownUnreachableAfter: 15 * time.Second,
		Roles:                    []string{DataCenterRolePrefix + DefaultDataCenter},
		AppVersion:               DefaultAppVersion,
		WeaklyUpBatchLimit:       1,
		TombstoneTTL:             24 * time.Hour,
		CoalescePeriod:           200 * time.Millisecond,
		QuiescentPeriod:          50 * time.Millisecond,
	}
}

// FromMap decodes raw config fragments (e.g. parsed JSON/HCL) into a
// Config seeded with DefaultConfig, the same mapstructure-based
// decoding command/agent/config.go uses for the Serf agent's own
// config surface. The "duration or off" shape of allow-weakly-up-members
// is handled by stringToWeaklyUpHook.
func FromMap(raw map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToWeaklyUpHook,
		),
		WeaklyTypedInput: true,
		Result:           cfg,
		TagName:          "config",
	})
	if err != nil {
		return nil, Wrap(err, "building config decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate aggregates every configuration problem into one error via
// go-multierror, the same aggregation style drand's optimizingClient
// uses for its own teardown errors.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.WeaklyUpBatchLimit < 0 {
		result = multierror.Append(result, errInvalidConfig("weakly-up-batch-limit must be >= 0"))
	}
	if c.AutoDownUnreachableAfter < 0 {
		result = multierror.Append(result, errInvalidConfig("auto-down-unreachable-after must be >= 0"))
	}
	if c.TombstoneTTL <= 0 {
		result = multierror.Append(result, errInvalidConfig("tombstone-ttl must be > 0"))
	}
	dcCount := 0
	for _, r := range c.Roles {
		if len(r) >= len(DataCenterRolePrefix) && r[:len(DataCenterRolePrefix)] == DataCenterRolePrefix {
			dcCount++
		}
	}
	if dcCount != 1 {
		result = multierror.Append(result, ErrMissingDatacenterRole)
	}
	return result.ErrorOrNil()
}

type configError string

func (e configError) Error() string { return string(e) }

func errInvalidConfig(msg string) error { return configError(msg) }

// stringToWeaklyUpHook decodes the "duration or off" shape of
// allow-weakly-up-members (§6) into *time.Duration: "off" (any case)
// becomes nil (WeaklyUp disabled), any other string is parsed as a
// duration, matching the conversions serf's agent config applies
// ad hoc to its own duration-shaped string fields.
func stringToWeaklyUpHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	if to != reflect.TypeOf((*time.Duration)(nil)) {
		return data, nil
	}
	s, _ := data.(string)
	if strings.EqualFold(s, "off") {
		return nil, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, Wrapf(err, "parsing allow-weakly-up-members %q", s)
	}
	return &d, nil
}
