package config

import "gopkg.in/yaml.v3"

// Durations are written in time.Duration string form ("45s") so the file
// reads back through viper's duration decoding.

// MarshalYAML writes the token lifetime as a duration string
func (c AuthConfig) MarshalYAML() (any, error) {
	type plain AuthConfig
	return struct {
		plain    `yaml:",inline"`
		TokenTTL string `yaml:"token_ttl"`
	}{plain(c), c.TokenTTL.String()}, nil
}

// MarshalYAML writes the pool lifetimes as duration strings
func (c DatabaseConfig) MarshalYAML() (any, error) {
	type plain DatabaseConfig
	return struct {
		plain           `yaml:",inline"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		SlowThreshold   string `yaml:"slow_threshold"`
	}{plain(c), c.ConnMaxLifetime.String(), c.SlowThreshold.String()}, nil
}

// MarshalYAML writes timeouts as duration strings and stop sequences
// double-quoted, so whitespace-only entries like "\n\n" survive a reload.
func (c InferenceConfig) MarshalYAML() (any, error) {
	type plain InferenceConfig
	return struct {
		plain          `yaml:",inline"`
		Timeout        string     `yaml:"timeout"`
		ConnectTimeout string     `yaml:"connect_timeout"`
		Stop           *yaml.Node `yaml:"stop"`
	}{plain(c), c.Timeout.String(), c.ConnectTimeout.String(), quotedList(c.Stop)}, nil
}

// MarshalYAML writes the cache lifetime as a duration string
func (c CacheConfig) MarshalYAML() (any, error) {
	type plain CacheConfig
	return struct {
		plain    `yaml:",inline"`
		Duration string `yaml:"duration"`
	}{plain(c), c.Duration.String()}, nil
}

func quotedList(items []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(items) == 0 {
		seq.Style = yaml.FlowStyle
	}
	for _, s := range items {
		seq.Content = append(seq.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Style: yaml.DoubleQuotedStyle,
			Value: s,
		})
	}
	return seq
}
