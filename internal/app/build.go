package app

import (
	"fmt"

	"relaymux/internal/config"
	"relaymux/internal/outbound"
	"relaymux/internal/rule"
	"relaymux/internal/vmess"
)

// buildDispatcher assembles the rule matcher and forward outbox set
// named in cfg into a ready Dispatcher. Grounded on
// original_source/p3/server/outdispatcher.py's construction from a
// parsed config document.
func buildDispatcher(cfg *config.Config) (*outbound.Dispatcher, error) {
	fallback, err := rule.FromString(string(cfg.Rules.Fallback))
	if err != nil {
		return nil, fmt.Errorf("rules.fallback: %w", err)
	}
	matcher := rule.New(fallback, cfg.Rules.FilePath)
	if err := matcher.Load(false); err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	outset := &outbound.Outset{Attempts: cfg.Retry.Attempts}
	for i, oc := range cfg.Outbox {
		ob, err := buildOutbox(oc)
		if err != nil {
			return nil, fmt.Errorf("outbox[%d] %q: %w", i, oc.Name, err)
		}
		outset.Outboxes = append(outset.Outboxes, ob)
	}
	outset.Clean()

	return outbound.NewDispatcher(matcher, outset), nil
}

func buildOutbox(oc config.Outbox) (*outbound.Outbox, error) {
	scheme, err := outboxScheme(oc.Scheme)
	if err != nil {
		return nil, err
	}
	ob := outbound.New(oc.Name, scheme, oc.Host, oc.Port)

	if oc.Weight != nil {
		ob.Weight.Set(*oc.Weight)
	}
	if oc.Delay != nil {
		ob.Delay = *oc.Delay
	}

	if oc.Password != "" {
		ob.TrojanAuth = config.TrojanAuthHex(oc.Password)
	}
	if oc.UUID != "" {
		id, err := vmess.NewUserID(oc.UUID)
		if err != nil {
			return nil, fmt.Errorf("uuid: %w", err)
		}
		ob.VmessUser = id
	}

	ob.Transport = outbound.TransportRaw
	if oc.Scheme == config.OutboxHTTPS || oc.Scheme == config.OutboxSocks5S {
		ob.Transport = outbound.TransportTLS
	}
	switch oc.Transport {
	case config.TransportTLS:
		ob.Transport = outbound.TransportTLS
	case config.TransportWS:
		ob.Transport = outbound.TransportWS
	case config.TransportWSS:
		ob.Transport = outbound.TransportWSS
	case config.TransportTCP:
		ob.Transport = outbound.TransportRaw
	}
	ob.TLSHost = oc.TLSHost
	ob.WSHost = oc.WSHost
	ob.WSPath = oc.WSPath
	if ob.Transport == outbound.TransportTLS || ob.Transport == outbound.TransportWSS {
		ob.TLSWrap = dialTLSWrap(oc.TLSProtocols)
	}

	return ob, nil
}

func outboxScheme(s config.OutboxScheme) (outbound.Scheme, error) {
	switch s {
	case config.OutboxTCP:
		return outbound.SchemeTCP, nil
	case config.OutboxDirect:
		return outbound.SchemeDirect, nil
	case config.OutboxHTTP, config.OutboxHTTPS:
		return outbound.SchemeHTTP, nil
	case config.OutboxSocks5, config.OutboxSocks5S:
		return outbound.SchemeSocks5, nil
	case config.OutboxTrojan:
		return outbound.SchemeTrojan, nil
	case config.OutboxVmess:
		return outbound.SchemeVmess, nil
	case config.OutboxNull:
		return outbound.SchemeNull, nil
	case config.OutboxBlock:
		return outbound.SchemeBlock, nil
	default:
		return 0, fmt.Errorf("unknown outbox scheme %q", s)
	}
}
