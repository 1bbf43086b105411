package config

import (
	"fmt"

	"gitlab.bluewillows.net/root/zonesync/internal/reconciler"
	"gitlab.bluewillows.net/root/zonesync/internal/state"
	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
	"gitlab.bluewillows.net/root/zonesync/pkg/txtcodec"
)

// ZoneConfig describes one zone to reconcile.
type ZoneConfig struct {
	// Provider is the name of the provider instance holding the zone.
	Provider string

	Zone   provider.ZoneRef
	State  state.Source
	Policy reconciler.Policy

	TXTTransformation    provider.TXTTransformation
	TXTCharacterEncoding txtcodec.CharacterEncoding

	DryRun bool
}

// Key identifies the zone across providers, e.g. "hetzner/example.com".
func (z *ZoneConfig) Key() string {
	return z.Provider + "/" + z.Zone.String()
}

// convertFileZone converts the zone at position index. globalDryRun forces
// dry-run for every zone.
func convertFileZone(index int, fz FileZoneConfig, globalDryRun bool) (*ZoneConfig, []string) {
	var errs []string
	label := fmt.Sprintf("zones[%d]", index)

	cfg := &ZoneConfig{
		Provider: fz.Provider,
		Zone:     provider.ZoneRef{ID: fz.ZoneID},
		Policy:   reconciler.DefaultPolicy(),
		DryRun:   globalDryRun,
	}

	if fz.Zone != "" {
		name, err := dnsname.NormalizeName(fz.Zone)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: zone: %v", label, err))
		}
		cfg.Zone.Name = name
		label = fmt.Sprintf("zones[%d] (%s)", index, name)
	}

	cfg.State = state.Source{Location: fz.State, Origin: cfg.Zone.Name}
	if fz.StateFormat != "" {
		format, err := state.ParseFormat(fz.StateFormat)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: state_format: %v", label, err))
		}
		cfg.State.Format = format
	}

	if fz.Prune != nil {
		cfg.Policy.Prune = *fz.Prune
	}
	if fz.OnExisting != "" {
		onExisting, err := reconciler.ParseOnExisting(fz.OnExisting)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: on_existing: %v", label, err))
		}
		cfg.Policy.OnExisting = onExisting
	}
	if fz.BulkOperationThreshold != nil {
		cfg.Policy.BulkOperationThreshold = *fz.BulkOperationThreshold
	}
	if err := cfg.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", label, err))
	}

	transformation, err := provider.ParseTXTTransformation(fz.TXTTransformation)
	if err != nil {
		errs = append(errs, fmt.Sprintf("%s: txt_transformation: %v", label, err))
	}
	cfg.TXTTransformation = transformation

	encoding, err := txtcodec.ParseCharacterEncoding(fz.TXTCharacterEncoding)
	if err != nil {
		errs = append(errs, fmt.Sprintf("%s: txt_character_encoding: %v", label, err))
	}
	cfg.TXTCharacterEncoding = encoding

	if fz.DryRun != nil && *fz.DryRun {
		cfg.DryRun = true
	}

	return cfg, errs
}
