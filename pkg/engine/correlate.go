package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/user/vulncorr/pkg/logger"
	"github.com/user/vulncorr/pkg/record"
)

// Correlate matches each vulnerability against the servers running the OS
// named by its affects field. Findings are ordered by vulnerability, then
// by server order within the matched group.
func Correlate(vulnerabilities []record.Record, idx *OSIndex) []Finding {
	var findings []Finding
	for _, vul := range vulnerabilities {
		affects, ok := vul.String("affects")
		if !ok {
			logger.WithFields(logrus.Fields{"reason": "no affects"}).Debug("skip vulnerability")
			continue
		}
		id, ok := ParseAffects(affects)
		if !ok {
			logger.WithFields(logrus.Fields{"reason": "no os separator", "affects": affects}).Debug("skip vulnerability")
			continue
		}
		servers, ok := idx.Lookup(id)
		if !ok {
			continue
		}

		for _, srv := range servers {
			// every alert needs all four fields
			if !vul.HasFields("name", "risk") || !srv.HasFields("hostname", "ip") {
				continue
			}
			f := Finding{}
			f.Name, _ = vul.String("name")
			f.Risk, _ = vul.String("risk")
			f.Hostname, _ = srv.String("hostname")
			f.IP, _ = srv.String("ip")
			findings = append(findings, f)
		}
	}
	return findings
}
