package limiter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Rule is the budget for one endpoint: Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

func (r Rule) String() string {
	return strconv.Itoa(r.Limit) + "/" + r.Window.String()
}

func (r Rule) validate() error {
	if r.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", r.Limit)
	}
	if r.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", r.Window)
	}
	return nil
}

// Rules maps endpoint keys to their budgets.
type Rules map[string]Rule

// DefaultRules returns the built-in budgets.
func DefaultRules() Rules {
	return Rules{
		EndpointLogin:       {Limit: 5, Window: time.Minute},
		EndpointRegister:    {Limit: 3, Window: time.Hour},
		EndpointDeleteUser:  {Limit: 10, Window: time.Minute},
		EndpointListAssets:  {Limit: 100, Window: time.Minute},
		EndpointReadAsset:   {Limit: 100, Window: time.Minute},
		EndpointCreateAsset: {Limit: 20, Window: time.Minute},
		EndpointUpdateAsset: {Limit: 30, Window: time.Minute},
		EndpointDeleteAsset: {Limit: 10, Window: time.Minute},
	}
}

// Decode implements envconfig.Decoder. The value is a comma separated list
// of endpoint=N/window entries, e.g. "auth.login=5/1m,assets.list=100/minute".
// Entries override DefaultRules; endpoints not mentioned keep their default.
func (r *Rules) Decode(value string) error {
	merged := DefaultRules()
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		endpoint, spec, ok := strings.Cut(entry, "=")
		endpoint = strings.TrimSpace(endpoint)
		if !ok || endpoint == "" {
			return fmt.Errorf("limiter: rule %q: want endpoint=N/window", entry)
		}
		rule, err := ParseRule(spec)
		if err != nil {
			return fmt.Errorf("limiter: rule %q: %w", entry, err)
		}
		merged[endpoint] = rule
	}
	*r = merged
	return nil
}

// String renders the rules in the form accepted by Decode.
func (r Rules) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+r[k].String())
	}
	return strings.Join(parts, ",")
}

// Validate reports the first invalid rule.
func (r Rules) Validate() error {
	for endpoint, rule := range r {
		if err := rule.validate(); err != nil {
			return fmt.Errorf("limiter: endpoint %q: %w", endpoint, err)
		}
	}
	return nil
}

var windowAliases = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseRule parses "N/window" where window is a Go duration or one of
// second, minute, hour, day.
func ParseRule(spec string) (Rule, error) {
	count, window, ok := strings.Cut(strings.TrimSpace(spec), "/")
	if !ok {
		return Rule{}, fmt.Errorf("want N/window, got %q", spec)
	}
	limit, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return Rule{}, fmt.Errorf("limit: %w", err)
	}
	window = strings.ToLower(strings.TrimSpace(window))
	length, ok := windowAliases[window]
	if !ok {
		length, err = time.ParseDuration(window)
		if err != nil {
			return Rule{}, fmt.Errorf("window: %w", err)
		}
	}
	rule := Rule{Limit: limit, Window: length}
	if err := rule.validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}
