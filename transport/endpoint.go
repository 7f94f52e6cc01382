package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind selects the transport variant for an endpoint.
type Kind int

const (
	// KindAuto guesses the variant from the descriptor: anything containing
	// a ':' is treated as host:port. Device paths that contain a colon are
	// misclassified, so prefer an explicit kind.
	KindAuto Kind = iota

	// KindSerial is a local serial line
	KindSerial

	// KindTCP is a TCP connection, usually to a relay
	KindTCP
)

func (k Kind) String() string {
	switch k {
	case KindAuto:
		return "auto"
	case KindSerial:
		return "serial"
	case KindTCP:
		return "tcp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts "auto", "serial" or "tcp" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return KindAuto, nil
	case "serial":
		return KindSerial, nil
	case "tcp":
		return KindTCP, nil
	default:
		return KindAuto, errors.Errorf("unknown transport kind %q", s)
	}
}

// Endpoint describes where the debug port lives.
type Endpoint struct {
	Kind Kind

	// Path is the serial device (KindSerial)
	Path string

	// Host and Port address the TCP peer (KindTCP)
	Host string
	Port int
}

// SerialEndpoint returns an endpoint for a local serial device.
func SerialEndpoint(path string) Endpoint {
	return Endpoint{Kind: KindSerial, Path: path}
}

// TCPEndpoint returns an endpoint for a TCP peer.
func TCPEndpoint(host string, port int) Endpoint {
	return Endpoint{Kind: KindTCP, Host: host, Port: port}
}

const tcpScheme = "tcp://"

// ParseEndpoint builds an Endpoint from a descriptor.
//
// A "tcp://" prefix always selects TCP. Otherwise kind decides, with
// KindAuto falling back to the colon heuristic. A TCP descriptor without a
// port uses DefaultTCPPort.
func ParseEndpoint(kind Kind, s string) (Endpoint, error) {
	if s == "" {
		return Endpoint{}, errors.New("empty endpoint")
	}

	if strings.HasPrefix(s, tcpScheme) {
		kind = KindTCP
		s = strings.TrimPrefix(s, tcpScheme)
	}

	if kind == KindAuto {
		if strings.Contains(s, ":") {
			kind = KindTCP
		} else {
			kind = KindSerial
		}
	}

	switch kind {
	case KindSerial:
		return SerialEndpoint(s), nil
	case KindTCP:
		host, port, err := splitHostPort(s)
		if err != nil {
			return Endpoint{}, err
		}
		return TCPEndpoint(host, port), nil
	default:
		return Endpoint{}, errors.Errorf("unknown transport kind %v", kind)
	}
}

func splitHostPort(s string) (string, int, error) {
	if !strings.Contains(s, ":") {
		return s, DefaultTCPPort, nil
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, errors.Wrapf(err, "parse tcp endpoint %q", s)
	}
	if portStr == "" {
		return host, DefaultTCPPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, errors.Errorf("invalid tcp port %q", portStr)
	}
	return host, port, nil
}

// Address returns host:port for TCP endpoints.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	switch e.Kind {
	case KindSerial:
		return "serial:" + e.Path
	case KindTCP:
		return tcpScheme + e.Address()
	default:
		return "unresolved:" + e.Path
	}
}
