// Copyright 2024-2026 Aiku AI

package connector

import (
	_ "embed"
	"text/template"
	"time"

	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// DefaultAPIEndpoint is the Telegram Bot API URL pattern (token, method).
const DefaultAPIEndpoint = "https://api.telegram.org/bot%s/%s"

const (
	defaultPollInterval   = 5
	defaultRequestTimeout = 30
	defaultSendRate       = 20
	defaultSendBurst      = 5
)

// Config holds the Telegram connector configuration.
type Config struct {
	Token       string `yaml:"token"`
	APIEndpoint string `yaml:"api_endpoint"`
	// PollInterval is the number of seconds between two getUpdates calls.
	PollInterval int `yaml:"poll_interval"`
	// PollTimeout is the getUpdates long-poll timeout in seconds. Zero
	// returns immediately.
	PollTimeout    int `yaml:"poll_timeout"`
	RequestTimeout int `yaml:"request_timeout"`
	// SendRate and SendBurst bound outbound Telegram sends.
	SendRate  float64 `yaml:"send_rate"`
	SendBurst int     `yaml:"send_burst"`

	DisplaynameTemplate string `yaml:"displayname_template"`

	displaynameTemplate *template.Template `yaml:"-"`
}

// DisplaynameParams holds the parameters for rendering the displayname template.
type DisplaynameParams struct {
	Username  string
	FirstName string
	LastName  string
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess fills defaults and compiles the displayname template.
func (c *Config) PostProcess() error {
	if c.APIEndpoint == "" {
		c.APIEndpoint = DefaultAPIEndpoint
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PollTimeout < 0 {
		c.PollTimeout = 0
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.SendRate <= 0 {
		c.SendRate = defaultSendRate
	}
	if c.SendBurst <= 0 {
		c.SendBurst = defaultSendBurst
	}
	c.displaynameTemplate = nil
	if c.DisplaynameTemplate == "" {
		return nil
	}
	var err error
	c.displaynameTemplate, err = template.New("displayname").Parse(c.DisplaynameTemplate)
	return err
}

// PollEvery returns the poll interval as a duration.
func (c *Config) PollEvery() time.Duration {
	if c.PollInterval <= 0 {
		return defaultPollInterval * time.Second
	}
	return time.Duration(c.PollInterval) * time.Second
}

// HTTPTimeout returns the Bot API request timeout. It always exceeds the
// long-poll timeout so getUpdates is not cut short.
func (c *Config) HTTPTimeout() time.Duration {
	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if timeout <= c.PollTimeout {
		timeout = c.PollTimeout + 10
	}
	return time.Duration(timeout) * time.Second
}

// UpgradeConfig copies user values of the telegram block onto the example.
func UpgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "token")
	helper.Copy(up.Str, "api_endpoint")
	helper.Copy(up.Int, "poll_interval")
	helper.Copy(up.Int, "poll_timeout")
	helper.Copy(up.Int, "request_timeout")
	helper.Copy(up.Float|up.Int, "send_rate")
	helper.Copy(up.Int, "send_burst")
	helper.Copy(up.Str, "displayname_template")
}

// FormatDisplayname renders a Telegram sender name. Without a template the
// username is used, falling back to the first name.
func (c *Config) FormatDisplayname(params DisplaynameParams) string {
	fallback := params.Username
	if fallback == "" {
		fallback = params.FirstName
	}
	if c.displaynameTemplate == nil {
		return fallback
	}
	var buf []byte
	err := c.displaynameTemplate.Execute(
		(*templateBuffer)(&buf),
		params,
	)
	if err != nil || len(buf) == 0 {
		return fallback
	}
	return string(buf)
}

// templateBuffer is a simple io.Writer that appends to a byte slice.
type templateBuffer []byte

func (b *templateBuffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
