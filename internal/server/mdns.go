package server

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"

	"github.com/skypro1111/wordclip-service/internal/config"
)

const (
	mdnsService = "_wordclip._tcp"
	mdnsDomain  = "local."
)

// Advertiser publishes the HTTP API as a DNS-SD service
type Advertiser struct {
	server *zeroconf.Server
	logger *slog.Logger
}

// mdnsInstance returns the configured instance name, falling back to the host
func mdnsInstance(cfg config.MDNSConfig) string {
	if name := strings.TrimSpace(cfg.Instance); name != "" {
		return name
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return fmt.Sprintf("%s on %s", serviceName, strings.Split(host, ".")[0])
	}
	return serviceName
}

func mdnsTXT() []string {
	return []string{
		"path=/",
		fmt.Sprintf("version=%s", serviceVersion),
		"api=sessions",
		"clip=audio/wav",
	}
}

// Advertise registers the service on port
func Advertise(cfg config.MDNSConfig, port int, logger *slog.Logger) (*Advertiser, error) {
	name := mdnsInstance(cfg)

	server, err := zeroconf.Register(name, mdnsService, mdnsDomain, port, mdnsTXT(), nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register failed: %w", err)
	}

	logger.Info("mDNS service advertised",
		slog.String("instance", name),
		slog.String("service", mdnsService),
		slog.String("domain", mdnsDomain),
		slog.Int("port", port),
	)

	return &Advertiser{server: server, logger: logger}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
	a.logger.Info("mDNS advertisement withdrawn")
}
