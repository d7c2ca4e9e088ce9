package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v2"

	"github.com/paulasmuth/brokerd/channel"
	"github.com/paulasmuth/brokerd/utils/log"
)

type BrokerdConfig struct {
	RootDirectory   string
	ListenHost      string
	ListenPort      string
	UtilitiesURL    string
	MaxSegmentSize  uint64
	StopGracePeriod time.Duration
	StartTime       time.Time
}

// ListenURL composes the host:port the HTTP server binds to.
func (m *BrokerdConfig) ListenURL() string {
	return fmt.Sprintf("%s%s", m.ListenHost, m.ListenPort)
}

// ParseConfig reads the YAML configuration. Only root_directory is
// mandatory; everything else has a usable default.
func ParseConfig(data []byte) (*BrokerdConfig, error) {
	m := &BrokerdConfig{}
	err := m.parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse brokerd config: %w", err)
	}
	return m, nil
}

func (m *BrokerdConfig) parse(data []byte) error {
	var aux struct {
		RootDirectory   string `yaml:"root_directory"`
		ListenHost      string `yaml:"listen_host"`
		ListenPort      string `yaml:"listen_port"`
		LogLevel        string `yaml:"log_level"`
		UtilitiesURL    string `yaml:"utilities_url"`
		MaxSegmentSize  string `yaml:"max_segment_size"`
		StopGracePeriod int    `yaml:"stop_grace_period"`
	}

	if err := yaml.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.RootDirectory == "" {
		return errors.New("invalid root directory")
	}
	m.RootDirectory = aux.RootDirectory

	if aux.ListenPort == "" {
		aux.ListenPort = "4242"
	}
	m.ListenHost = aux.ListenHost
	m.ListenPort = fmt.Sprintf(":%v", aux.ListenPort)
	m.UtilitiesURL = aux.UtilitiesURL

	if aux.LogLevel != "" {
		switch strings.ToLower(aux.LogLevel) {
		case "error":
			log.SetLevel(log.ERROR)
		case "warning":
			log.SetLevel(log.WARNING)
		case "debug":
			log.SetLevel(log.DEBUG)
		case "info":
			fallthrough
		default:
			log.SetLevel(log.INFO)
		}
	}

	m.MaxSegmentSize = channel.DefaultMaxSegmentSize
	if aux.MaxSegmentSize != "" {
		size, err := bytefmt.ToBytes(aux.MaxSegmentSize)
		if err != nil {
			return fmt.Errorf("invalid max_segment_size %q: %w", aux.MaxSegmentSize, err)
		}
		m.MaxSegmentSize = size
	}

	if aux.StopGracePeriod > 0 {
		m.StopGracePeriod = time.Duration(aux.StopGracePeriod) * time.Second
	}

	return nil
}
