package printsrv

import (
	"github.com/grandcat/zeroconf"

	"github.com/rusq/posprint/transport"
)

type mdnsSvc zeroconf.Server

const (
	serviceType = "_http._tcp"
	domain      = "local."
)

func mdnsTXT() []string {
	return []string{
		"txtvers=1",
		"path=" + transport.PrintPath,
		"product=(posprint)",
		"pdl=application/vnd.escpos,image/png,image/jpeg",
		"note=https://github.com/rusq/posprint",
	}
}

func newMDNS(instance string, port int) (*mdnsSvc, error) {
	srv, err := zeroconf.Register(
		instance,
		serviceType,
		domain,
		port,
		mdnsTXT(),
		nil,
	)
	if err != nil {
		return nil, err
	}
	return (*mdnsSvc)(srv), nil
}

func (s *mdnsSvc) Shutdown() {
	(*zeroconf.Server)(s).Shutdown()
}
