package datachannel

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// Configuration describes a peer connection (rtcConfiguration).
type Configuration struct {
	// ICEServers are STUN/TURN URLs, for example "stun:stun.l.google.com:19302"
	// or "turn:user:pass@turn.example.com:3478?transport=tcp".
	ICEServers []ICEServer `yaml:"ice_servers"`

	// ProxyServer is a proxy URL such as "http://proxy:8080".
	ProxyServer string `yaml:"proxy_server"`

	// BindAddress restricts the local address ICE binds to.
	BindAddress string `yaml:"bind_address"`

	CertificateType    CertificateType `yaml:"certificate_type"`
	ICETransportPolicy TransportPolicy `yaml:"ice_transport_policy"`

	EnableICETCP           bool `yaml:"enable_ice_tcp"`
	EnableICEUDPMux        bool `yaml:"enable_ice_udp_mux"`
	DisableAutoNegotiation bool `yaml:"disable_auto_negotiation"`
	ForceMediaTransport    bool `yaml:"force_media_transport"`

	// PortRangeBegin and PortRangeEnd bound the local UDP ports. Zero
	// leaves the choice to libdatachannel.
	PortRangeBegin uint16 `yaml:"port_range_begin"`
	PortRangeEnd   uint16 `yaml:"port_range_end"`

	// MTU is the path MTU in bytes. Zero uses the default.
	MTU int `yaml:"mtu"`
	// MaxMessageSize is the largest message announced to the remote peer.
	// Zero uses the default.
	MaxMessageSize int `yaml:"max_message_size"`
}

// ICEServer is one ICE server URL.
//
// In YAML it is either a plain URL or a mapping with separate credentials:
//
//	ice_servers:
//	  - stun:stun.l.google.com:19302
//	  - url: turn:turn.example.com:3478
//	    username: user
//	    credential: secret
type ICEServer string

func (s *ICEServer) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*s = ICEServer(value.Value)
		return nil
	}

	var raw struct {
		URL        string `yaml:"url"`
		Username   string `yaml:"username"`
		Credential string `yaml:"credential"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	url, err := iceURLWithCredentials(raw.URL, raw.Username, raw.Credential)
	if err != nil {
		return err
	}
	*s = ICEServer(url)
	return nil
}

var iceSchemes = []string{"stun:", "stuns:", "turn:", "turns:"}

func (s ICEServer) validate() error {
	for _, scheme := range iceSchemes {
		if rest, ok := strings.CutPrefix(string(s), scheme); ok {
			if rest == "" {
				return fmt.Errorf("ice server %q: missing host", s)
			}
			return nil
		}
	}
	return fmt.Errorf("ice server %q: scheme must be one of %v", s, iceSchemes)
}

// Validate checks the configuration for errors.
func (c *Configuration) Validate() error {
	var errs []error

	for _, s := range c.ICEServers {
		if err := s.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.BindAddress != "" {
		if _, err := netip.ParseAddr(c.BindAddress); err != nil {
			errs = append(errs, fmt.Errorf("bind_address: %w", err))
		}
	}
	if c.PortRangeEnd != 0 && c.PortRangeBegin > c.PortRangeEnd {
		errs = append(errs, fmt.Errorf("port range %d-%d is empty", c.PortRangeBegin, c.PortRangeEnd))
	}
	if c.MTU < 0 {
		errs = append(errs, fmt.Errorf("mtu must not be negative"))
	}
	if c.MaxMessageSize < 0 {
		errs = append(errs, fmt.Errorf("max_message_size must not be negative"))
	}
	if c.CertificateType < CertificateDefault || c.CertificateType > CertificateRSA {
		errs = append(errs, fmt.Errorf("certificate_type %d is unknown", c.CertificateType))
	}
	if c.ICETransportPolicy < TransportPolicyAll || c.ICETransportPolicy > TransportPolicyRelay {
		errs = append(errs, fmt.Errorf("ice_transport_policy %d is unknown", c.ICETransportPolicy))
	}

	return errors.Join(errs...)
}

func (c *Configuration) toBridge() *bridge.PeerConfig {
	if c == nil {
		return &bridge.PeerConfig{}
	}
	servers := make([]string, len(c.ICEServers))
	for i, s := range c.ICEServers {
		servers[i] = string(s)
	}
	return &bridge.PeerConfig{
		ICEServers:             servers,
		ProxyServer:            c.ProxyServer,
		BindAddress:            c.BindAddress,
		CertificateType:        int32(c.CertificateType),
		ICETransportPolicy:     int32(c.ICETransportPolicy),
		EnableICETCP:           c.EnableICETCP,
		EnableICEUDPMux:        c.EnableICEUDPMux,
		DisableAutoNegotiation: c.DisableAutoNegotiation,
		ForceMediaTransport:    c.ForceMediaTransport,
		PortRangeBegin:         c.PortRangeBegin,
		PortRangeEnd:           c.PortRangeEnd,
		MTU:                    int32(c.MTU),
		MaxMessageSize:         int32(c.MaxMessageSize),
	}
}

// Config is the file form of Options plus a default peer configuration.
type Config struct {
	// Library is the libdatachannel path. Empty searches the default
	// locations.
	Library string `yaml:"library"`

	// LogLevel is the native log level: none, fatal, error, warning, info,
	// debug or verbose.
	LogLevel LogLevel `yaml:"log_level"`

	// DropPolicy is "silent" or "log".
	DropPolicy string `yaml:"drop_policy"`

	// Peer is used for every peer connection created from this config.
	Peer Configuration `yaml:"peer"`
}

// DefaultConfig returns the configuration used for fields a file omits.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   LogWarning,
		DropPolicy: bridge.DropSilently.String(),
		Peer: Configuration{
			ICEServers: []ICEServer{"stun:stun.l.google.com:19302"},
		},
	}
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Library = os.ExpandEnv(cfg.Library)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := bridge.ParseDropPolicy(c.DropPolicy); !ok {
		errs = append(errs, fmt.Errorf("drop_policy must be one of: [silent log]"))
	}
	if c.LogLevel < LogNone || c.LogLevel > LogVerbose {
		errs = append(errs, fmt.Errorf("log_level %d is unknown", c.LogLevel))
	}
	if err := c.Peer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("peer: %w", err))
	}
	return errors.Join(errs...)
}

// Options returns the Load options described by c.
func (c *Config) Options() Options {
	return Options{
		Library:    c.Library,
		LogLevel:   c.LogLevel,
		DropPolicy: c.DropPolicy,
	}
}
