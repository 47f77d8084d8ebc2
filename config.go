// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package busrpc

import (
	"time"

	"go.uber.org/busrpc/transport/redisbus"
	"gopkg.in/yaml.v2"
)

// Config is the YAML configuration surface of a Client.
type Config struct {
	// MessageBus is the bus connection target and key prefix.
	MessageBus MessageBusConfig `yaml:"messageBus"`

	// TimeoutSeconds is the per-call wait bound. Defaults to 60.
	TimeoutSeconds int `yaml:"timeoutSeconds"`

	// ServerMaxAgeSeconds is the cache freshness bound for discovered
	// server lists; the eviction sweep runs at half this period.
	// Defaults to 60.
	ServerMaxAgeSeconds int `yaml:"serverMaxAgeSeconds"`

	// DisableAutoRemoteCleanup stops the client from deleting a failed
	// server's remote registration key alongside the local eviction.
	DisableAutoRemoteCleanup bool `yaml:"disableAutoRemoteCleanup"`
}

// MessageBusConfig locates the redis bus.
type MessageBusConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	DB     int    `yaml:"db"`
	Prefix string `yaml:"prefix"`
}

// ParseConfig decodes a YAML document into a Config, rejecting unknown
// fields.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Options renders the config as client options, applying defaults for
// unset fields.
func (c Config) Options() []Option {
	timeout := DefaultTimeout
	if c.TimeoutSeconds > 0 {
		timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	maxAge := DefaultServerMaxAge
	if c.ServerMaxAgeSeconds > 0 {
		maxAge = time.Duration(c.ServerMaxAgeSeconds) * time.Second
	}
	prefix := DefaultPrefix
	if c.MessageBus.Prefix != "" {
		prefix = c.MessageBus.Prefix
	}

	opts := []Option{
		Prefix(prefix),
		Timeout(timeout),
		ServerMaxAge(maxAge),
	}
	if c.DisableAutoRemoteCleanup {
		opts = append(opts, DisableAutoRemoteCleanup())
	}
	return opts
}

// NewClient dials the configured redis bus and builds a Client from the
// config. Extra options are applied after the config-derived ones and
// take precedence.
func (c Config) NewClient(opts ...Option) (*Client, error) {
	host := c.MessageBus.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.MessageBus.Port
	if port == 0 {
		port = 6379
	}

	b, err := redisbus.New(redisbus.Config{
		Host: host,
		Port: port,
		DB:   c.MessageBus.DB,
	})
	if err != nil {
		return nil, err
	}

	client, err := New(b, append(c.Options(), opts...)...)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return client, nil
}
