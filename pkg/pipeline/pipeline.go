package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/user/vulncorr/pkg/engine"
	"github.com/user/vulncorr/pkg/logger"
	"github.com/user/vulncorr/pkg/record"
)

// ServerSource supplies the server inventory.
type ServerSource interface {
	FetchServers(ctx context.Context) ([]record.Record, error)
}

// VulnerabilitySource supplies the vulnerability feed.
type VulnerabilitySource interface {
	FetchVulnerabilities(ctx context.Context) ([]record.Record, error)
}

// Sink receives the rendered alert lines once per run.
type Sink interface {
	Write(lines []string) error
}

// Deps are the collaborators of a run.
type Deps struct {
	Servers         ServerSource
	Vulnerabilities VulnerabilitySource
	Rules           []engine.Rule
	Renderer        *engine.Renderer
	Sink            Sink
}

// Summary reports the size of each stage of a run.
type Summary struct {
	Servers             int
	Vulnerabilities     int
	ServersKept         int
	VulnerabilitiesKept int
	Groups              int
	Findings            []engine.Finding
}

// Run fetches both collections, filters them with the rules, correlates
// the survivors and hands the alert lines to the sink. Any collaborator
// error aborts the run before the sink is touched.
func Run(ctx context.Context, d Deps) (*Summary, error) {
	if d.Servers == nil || d.Vulnerabilities == nil || d.Sink == nil {
		return nil, errors.New("pipeline: sources and sink are required")
	}
	renderer := d.Renderer
	if renderer == nil {
		var err error
		if renderer, err = engine.NewRenderer(""); err != nil {
			return nil, err
		}
	}

	// 1. Fetch
	servers, err := d.Servers.FetchServers(ctx)
	if err != nil {
		return nil, err
	}
	vulns, err := d.Vulnerabilities.FetchVulnerabilities(ctx)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Servers: len(servers), Vulnerabilities: len(vulns)}

	// 2. Filter
	servers, vulns = engine.ApplyRules(d.Rules, servers, vulns)
	sum.ServersKept, sum.VulnerabilitiesKept = len(servers), len(vulns)

	// 3. Correlate
	idx := engine.IndexByOS(servers)
	sum.Groups = idx.Len()
	sum.Findings = engine.Correlate(vulns, idx)

	logger.WithFields(logrus.Fields{
		"servers":         sum.Servers,
		"servers_kept":    sum.ServersKept,
		"vulnerabilities": sum.Vulnerabilities,
		"vulns_kept":      sum.VulnerabilitiesKept,
		"os_groups":       sum.Groups,
		"findings":        len(sum.Findings),
	}).Info("correlation complete")

	// 4. Render
	lines, err := renderer.RenderAll(sum.Findings)
	if err != nil {
		return nil, err
	}
	if err := d.Sink.Write(lines); err != nil {
		return nil, fmt.Errorf("write alerts: %w", err)
	}
	return sum, nil
}
