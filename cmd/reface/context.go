package main

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reface/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) client() (*apiClient, error) {
	if c.apiFlag != nil {
		if base := strings.TrimSpace(*c.apiFlag); base != "" {
			return newAPIClient(base), nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return newAPIClient(bindToBaseURL(cfg.Paths.APIBind)), nil
}

// bindToBaseURL turns the daemon's listen address into a dialable URL.
func bindToBaseURL(bind string) string {
	trimmed := strings.TrimSpace(bind)
	host, port, err := net.SplitHostPort(trimmed)
	if err != nil {
		return "http://" + trimmed
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, port))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
